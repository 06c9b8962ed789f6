package tictactoe

import (
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/apperror"
	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// ValidateMove checks whether playerID may submit move against game. It never
// mutates game and returns the first failing rule.
func ValidateMove(game *entity.Game, move entity.Move, playerID string) error {
	if game == nil || !game.IsLive() {
		return apperror.ErrNotActive
	}

	seat := game.Seat(move.Player)
	if seat == nil || seat.ID != playerID {
		return apperror.ErrNotInGame
	}

	if game.NextTurn != move.Player {
		return apperror.ErrNotYourTurn
	}

	if !inBounds(move.LocalBoardIndex) || !inBounds(move.CellIndex) {
		return apperror.ErrInvalidMove
	}

	if game.ActiveLocalBoard != nil && *game.ActiveLocalBoard != move.LocalBoardIndex {
		return apperror.ErrWrongBoard
	}

	if game.LocalBoards[move.FlatIndex()] != entity.NoSymbol {
		return apperror.ErrCellTaken
	}

	if game.GlobalBoard[move.LocalBoardIndex] != entity.NoSymbol {
		return apperror.ErrBoardDecided
	}

	return nil
}

func inBounds(index int) bool {
	return index >= 0 && index < entity.BoardSize
}
