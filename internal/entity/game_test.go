package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameStatusMethods(t *testing.T) {
	t.Run("IsFinished returns true when game status is finished", func(t *testing.T) {
		// Given: a game with StatusFinished
		game := &Game{Status: StatusFinished}

		// Then: only IsFinished is true
		assert.True(t, game.IsFinished())
		assert.False(t, game.IsLive())
		assert.False(t, game.IsWaiting())
	})

	t.Run("IsLive returns true when game status is live", func(t *testing.T) {
		// Given: a game with StatusLive
		game := &Game{Status: StatusLive}

		// Then: it should report live
		assert.True(t, game.IsLive())
	})

	t.Run("IsWaiting returns true when game status is waiting", func(t *testing.T) {
		// Given: a game with StatusWaiting
		game := &Game{Status: StatusWaiting}

		// Then: it should report waiting
		assert.True(t, game.IsWaiting())
	})
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, SymbolO, SymbolX.Opponent())
	assert.Equal(t, SymbolX, SymbolO.Opponent())
	assert.True(t, SymbolX.IsPlayer())
	assert.False(t, SymbolDraw.IsPlayer())
	assert.False(t, NoSymbol.IsPlayer())
}

func TestGame_Clone(t *testing.T) {
	// Given: a game with every reference field populated
	board := 3
	game := &Game{
		ID:                 "g1",
		XPlayer:            &PlayerProfile{ID: "px"},
		OPlayer:            &PlayerProfile{ID: "po"},
		PlayerIDs:          []string{"px", "po"},
		ActiveLocalBoard:   &board,
		LastMove:           &Move{Player: SymbolX, LocalBoardIndex: 1, CellIndex: 3},
		WinningLine:        []int{0, 1, 2},
		Chat:               []ChatMessage{{SenderID: "px", Text: "hi"}},
		RematchRequestedBy: []string{"px"},
	}

	// When: cloning and mutating the clone
	clone := game.Clone()
	require.Equal(t, game, clone)

	clone.XPlayer.Name = "changed"
	clone.PlayerIDs[0] = "changed"
	*clone.ActiveLocalBoard = 7
	clone.LastMove.CellIndex = 8
	clone.WinningLine[0] = 6
	clone.Chat[0].Text = "changed"
	clone.RematchRequestedBy[0] = "changed"
	clone.LocalBoards[0] = SymbolO

	// Then: the original is untouched
	assert.Empty(t, game.XPlayer.Name)
	assert.Equal(t, "px", game.PlayerIDs[0])
	assert.Equal(t, 3, *game.ActiveLocalBoard)
	assert.Equal(t, 3, game.LastMove.CellIndex)
	assert.Equal(t, 0, game.WinningLine[0])
	assert.Equal(t, "hi", game.Chat[0].Text)
	assert.Equal(t, "px", game.RematchRequestedBy[0])
	assert.Equal(t, NoSymbol, game.LocalBoards[0])

	// Then: a nil game clones to nil
	assert.Nil(t, (*Game)(nil).Clone())
}

func TestGame_Seats(t *testing.T) {
	// Given: a game with both seats taken
	game := &Game{
		XPlayer:   &PlayerProfile{ID: "px"},
		OPlayer:   &PlayerProfile{ID: "po"},
		PlayerIDs: []string{"px", "po"},
	}

	// Then: seats resolve both ways
	assert.Equal(t, "px", game.Seat(SymbolX).ID)
	assert.Equal(t, "po", game.Seat(SymbolO).ID)
	assert.Nil(t, game.Seat(SymbolDraw))
	assert.Equal(t, SymbolX, game.SymbolOf("px"))
	assert.Equal(t, SymbolO, game.SymbolOf("po"))
	assert.Equal(t, NoSymbol, game.SymbolOf("stranger"))
	assert.True(t, game.HasPlayer("po"))
	assert.False(t, game.HasPlayer("stranger"))
}

func TestGame_Counters(t *testing.T) {
	// Given: a game with some placed cells and decided boards
	game := &Game{}
	game.LocalBoards[0] = SymbolX
	game.LocalBoards[40] = SymbolO
	game.LocalBoards[80] = SymbolX
	game.GlobalBoard = [9]Symbol{SymbolX, SymbolO, SymbolX, SymbolDraw}

	// Then: counters reflect the boards
	assert.Equal(t, 3, game.PlacedCells())
	assert.Equal(t, 2, game.BoardsWon(SymbolX))
	assert.Equal(t, 1, game.BoardsWon(SymbolO))
	assert.Equal(t, [9]Symbol{4: SymbolO}, game.LocalBoard(4))
	assert.Equal(t, SymbolX, game.LocalBoard(8)[8])
}

func TestGame_JSON(t *testing.T) {
	t.Run("Empty cells are written as null", func(t *testing.T) {
		// Given: a game with one placed cell
		game := &Game{ID: "g1", Status: StatusLive, NextTurn: SymbolO}
		game.LocalBoards[0] = SymbolX

		// When: encoding it
		data, err := json.Marshal(game)
		require.NoError(t, err)

		// Then: undecided boards and empty cells are null
		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		assert.Equal(t, []any{nil, nil, nil, nil, nil, nil, nil, nil, nil}, raw["globalBoard"])
		assert.Equal(t, "X", raw["localBoards"].([]any)[0])
		assert.Nil(t, raw["localBoards"].([]any)[1])
		assert.Nil(t, raw["activeLocalBoard"])
		assert.NotContains(t, raw, "winner")
	})

	t.Run("Round trip keeps the board", func(t *testing.T) {
		// Given: a finished game with a winning line
		board := 2
		game := &Game{
			ID:               "g1",
			Status:           StatusFinished,
			NextTurn:         SymbolX,
			Winner:           SymbolO,
			WinningLine:      []int{2, 4, 6},
			WinReason:        WinReasonCheckmate,
			ActiveLocalBoard: &board,
			XPlayer:          &PlayerProfile{ID: "px"},
			OPlayer:          &PlayerProfile{ID: "po"},
			PlayerIDs:        []string{"px", "po"},
		}
		game.GlobalBoard[3] = SymbolDraw
		game.LocalBoards[17] = SymbolO

		// When: encoding and decoding
		data, err := json.Marshal(game)
		require.NoError(t, err)

		var decoded Game
		require.NoError(t, json.Unmarshal(data, &decoded))

		// Then: the decoded game equals the original
		assert.Equal(t, game, &decoded)
	})

	t.Run("Unknown symbols are rejected", func(t *testing.T) {
		for _, raw := range []string{
			`{"id":"g1","nextTurn":"Z"}`,
			`{"id":"g1","localBoards":[null,"x"]}`,
			`{"id":"g1","globalBoard":[""]}`,
			`{"id":"g1","winner":"XO"}`,
		} {
			// When: decoding a record with a value that is not X, O, D or null
			var decoded Game
			err := json.Unmarshal([]byte(raw), &decoded)

			// Then: decoding fails
			require.ErrorIs(t, err, ErrInvalidSymbol, raw)
		}
	})

	t.Run("Known symbols decode", func(t *testing.T) {
		var symbols [4]Symbol
		require.NoError(t, json.Unmarshal([]byte(`["X","O","D",null]`), &symbols))

		assert.Equal(t, [4]Symbol{SymbolX, SymbolO, SymbolDraw, NoSymbol}, symbols)
	})
}
