package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/repository"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/testing/suite"
)

type failingStore struct{}

func (failingStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestServer_Ping(t *testing.T) {
	server := New(suite.NewLogger(), "0", repository.NewMemoryStore())

	// When: /ping is requested
	rec := get(t, server.Handler(), "/ping")

	// Then: it answers pong
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	t.Run("Store reachable", func(t *testing.T) {
		ctx, st := suite.New(t)
		store := repository.NewRedisStore(st.Storage, repository.DefaultMaxTxAttempts)
		require.NoError(t, store.Ping(ctx))

		// When: /healthz is requested
		rec := get(t, New(st.Logger, "0", store).Handler(), "/healthz")

		// Then: it answers ok
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("Store unreachable", func(t *testing.T) {
		// When: the store ping fails
		rec := get(t, New(suite.NewLogger(), "0", failingStore{}).Handler(), "/healthz")

		// Then: the service reports unavailable
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestServer_Start(t *testing.T) {
	// Given: a server on a free port
	server := New(suite.NewLogger(), "0", repository.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Start(ctx)
	}()

	// When: the context is canceled
	cancel()

	// Then: Start returns without error
	require.NoError(t, <-done)
}
