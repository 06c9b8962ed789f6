package usecase

import (
	"context"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/tictactoe"
)

// GameUseCase is the only way game and player records change. Every method
// that writes runs as one store transaction. Rule violations come back as
// *apperror.Rejection and leave the records untouched.
type GameUseCase interface {
	CreateGame(ctx context.Context, creator *entity.PlayerProfile, timeLimit int) (string, error)
	JoinGame(ctx context.Context, gameID string, player *entity.PlayerProfile) error
	MakeMove(ctx context.Context, gameID, playerID string, move entity.Move) (*entity.Game, error)
	ForfeitGame(ctx context.Context, gameID, playerID string) error
	TimeoutGame(ctx context.Context, gameID string, symbol entity.Symbol) error
	RequestRematch(ctx context.Context, gameID, playerID string) (string, error)
	SendMessage(ctx context.Context, gameID, playerID, text string) error

	GetGame(ctx context.Context, gameID string) (*entity.Game, error)
	GetPlayer(ctx context.Context, playerID string) (*entity.Player, error)
	SyncPlayer(ctx context.Context, profile *entity.PlayerProfile) (*entity.Player, error)
}

const MaxMessageLength = 500

// Rules holds the policy knobs of the lifecycle operations.
type Rules struct {
	// ForfeitMinCells is the number of placed cells below which a forfeited
	// live game is deleted instead of scored.
	ForfeitMinCells int

	TimeoutTiebreak tictactoe.TimeoutTiebreak

	// ChatHistoryLimit caps the stored chat; 0 keeps every message.
	ChatHistoryLimit int
}

func DefaultRules() Rules {
	return Rules{
		ForfeitMinCells:  18,
		TimeoutTiebreak:  tictactoe.TiebreakBoards,
		ChatHistoryLimit: 100,
	}
}
