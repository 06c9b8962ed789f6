package tictactoe

import (
	"time"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/entity"
)

type TimeoutTiebreak string

const (
	// TiebreakBoards awards the game to whoever has won strictly more local boards.
	TiebreakBoards TimeoutTiebreak = "boards"
	// TiebreakOpponent awards the game to the player who did not run out of time.
	TiebreakOpponent TimeoutTiebreak = "opponent"
)

// NewGame creates a waiting game seated with creator as X.
func NewGame(id string, creator *entity.PlayerProfile, timeLimit int, now time.Time) *entity.Game {
	game := &entity.Game{
		ID:        id,
		CreatedAt: now.UnixMilli(),
		UpdatedAt: now.UnixMilli(),
		XPlayer:   creator.Clone(),
		PlayerIDs: []string{creator.ID},
		Status:    entity.StatusWaiting,
		NextTurn:  entity.SymbolX,
	}

	if timeLimit > 0 {
		game.TimeLimit = timeLimit
		game.XPlayerTime = float64(timeLimit)
		game.OPlayerTime = float64(timeLimit)
	}

	return game
}

// Join seats opponent as O and starts the game and its clock.
func Join(game *entity.Game, opponent *entity.PlayerProfile, now time.Time) *entity.Game {
	next := game.Clone()
	next.OPlayer = opponent.Clone()
	next.PlayerIDs = append(next.PlayerIDs, opponent.ID)
	next.Status = entity.StatusLive
	next.UpdatedAt = now.UnixMilli()

	if next.IsTimed() {
		next.LastMoveTimestamp = now.UnixMilli()
	}

	return next
}

// Forfeit finishes a live game in favour of loser's opponent.
func Forfeit(game *entity.Game, loser entity.Symbol, now time.Time) *entity.Game {
	next := game.Clone()
	if next.IsTimed() {
		next.SetRemainingTime(next.NextTurn, RemainingAt(game, next.NextTurn, now))
		next.LastMoveTimestamp = now.UnixMilli()
	}

	finish(next, loser.Opponent(), entity.WinReasonForfeit, now)

	return next
}

// Timeout finishes a game whose timedOut player ran out of clock.
func Timeout(game *entity.Game, timedOut entity.Symbol, tiebreak TimeoutTiebreak, now time.Time) *entity.Game {
	next := game.Clone()
	next.SetRemainingTime(timedOut, 0)
	next.LastMoveTimestamp = now.UnixMilli()

	var winner entity.Symbol

	switch tiebreak {
	case TiebreakOpponent:
		winner = timedOut.Opponent()
	default:
		xWon, oWon := game.BoardsWon(entity.SymbolX), game.BoardsWon(entity.SymbolO)
		switch {
		case xWon > oWon:
			winner = entity.SymbolX
		case oWon > xWon:
			winner = entity.SymbolO
		default:
			winner = entity.SymbolDraw
		}
	}

	finish(next, winner, entity.WinReasonTimeout, now)

	return next
}

// NewRematch starts a live successor of a finished game with the same players
// and time limit. swap decides whether the previous O player now plays X.
func NewRematch(prev *entity.Game, id string, swap bool, now time.Time) *entity.Game {
	xPlayer, oPlayer := prev.XPlayer, prev.OPlayer
	if swap {
		xPlayer, oPlayer = oPlayer, xPlayer
	}

	game := NewGame(id, xPlayer, prev.TimeLimit, now)

	return Join(game, oPlayer, now)
}

func finish(game *entity.Game, winner entity.Symbol, reason entity.WinReason, now time.Time) {
	game.Status = entity.StatusFinished
	game.Winner = winner
	game.WinningLine = nil
	game.WinReason = reason
	game.ActiveLocalBoard = nil
	game.UpdatedAt = now.UnixMilli()
}
