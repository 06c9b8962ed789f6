package tictactoe

import (
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

// ApplyMove returns the game that results from move. The input is not modified.
// Callers must run ValidateMove first; ApplyMove assumes the move is legal.
func ApplyMove(game *entity.Game, move entity.Move, now time.Time) *entity.Game {
	next := game.Clone()
	next.UpdatedAt = now.UnixMilli()

	tickClock(next, move.Player, now)

	next.LocalBoards[move.FlatIndex()] = move.Player
	lastMove := move
	next.LastMove = &lastMove

	local := CheckOutcome(next.LocalBoard(move.LocalBoardIndex))
	if local.IsDecided() {
		next.GlobalBoard[move.LocalBoardIndex] = local.Winner
	}

	global := CheckOutcome(next.GlobalBoard)
	if global.Winner.IsPlayer() {
		next.Winner = global.Winner
		next.WinningLine = global.Line
		next.Status = entity.StatusFinished
		next.WinReason = entity.WinReasonCheckmate
		next.ActiveLocalBoard = nil
		return next
	}

	// routing reads the global board after this move's local result was written
	if next.GlobalBoard[move.CellIndex] != entity.NoSymbol {
		next.ActiveLocalBoard = nil
	} else {
		target := move.CellIndex
		next.ActiveLocalBoard = &target
	}

	next.NextTurn = move.Player.Opponent()

	if global.Winner == entity.SymbolDraw {
		next.Winner = entity.SymbolDraw
		next.Status = entity.StatusFinished
		next.WinReason = entity.WinReasonCheckmate
	}

	return next
}

// tickClock charges the mover for the time since the last clock event.
func tickClock(game *entity.Game, mover entity.Symbol, now time.Time) {
	if !game.IsTimed() {
		return
	}

	game.SetRemainingTime(mover, RemainingAt(game, mover, now))
	game.LastMoveTimestamp = now.UnixMilli()
}

// RemainingAt returns the seconds symbol has left at now. Only the player to
// move has a running clock, and only while the game is live.
func RemainingAt(game *entity.Game, symbol entity.Symbol, now time.Time) float64 {
	remaining := game.RemainingTime(symbol)
	if !game.IsTimed() || !game.IsLive() || game.NextTurn != symbol || game.LastMoveTimestamp == 0 {
		return remaining
	}

	elapsed := now.UnixMilli() - game.LastMoveTimestamp
	if elapsed < 0 {
		elapsed = 0
	}

	return max(0, remaining-float64(elapsed)/1000)
}
