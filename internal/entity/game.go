package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidSymbol = errors.New("invalid symbol")

type Symbol string

const (
	SymbolX    Symbol = "X"
	SymbolO    Symbol = "O"
	SymbolDraw Symbol = "D"

	// NoSymbol marks an empty cell or an undecided board.
	NoSymbol Symbol = ""
)

// Opponent returns the other seat. It is only meaningful for X and O.
func (that Symbol) Opponent() Symbol {
	if that == SymbolX {
		return SymbolO
	}
	return SymbolX
}

func (that Symbol) IsPlayer() bool {
	return that == SymbolX || that == SymbolO
}

// MarshalJSON writes empty cells and undecided boards as null.
func (that Symbol) MarshalJSON() ([]byte, error) {
	if that == NoSymbol {
		return []byte("null"), nil
	}
	return json.Marshal(string(that))
}

func (that *Symbol) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*that = NoSymbol
		return nil
	}

	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	switch symbol := Symbol(value); symbol {
	case SymbolX, SymbolO, SymbolDraw:
		*that = symbol
		return nil
	}

	return fmt.Errorf("%w: %q", ErrInvalidSymbol, value)
}

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusLive     Status = "live"
	StatusFinished Status = "finished"
)

type WinReason string

const (
	WinReasonCheckmate WinReason = "checkmate"
	WinReasonTimeout   WinReason = "timeout"
	WinReasonForfeit   WinReason = "forfeit"
)

const (
	BoardSize       = 9
	LocalBoardCount = 9
	CellCount       = LocalBoardCount * BoardSize
)

// Game is the authoritative record of one match. LocalBoards is flat: the cell
// at (board, cell) lives at board*9+cell.
type Game struct {
	ID        string         `json:"id"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt,omitempty"`
	XPlayer   *PlayerProfile `json:"xPlayer"`
	OPlayer   *PlayerProfile `json:"oPlayer"`
	PlayerIDs []string       `json:"playerIds"`
	Status    Status         `json:"status"`
	NextTurn  Symbol         `json:"nextTurn"`

	GlobalBoard      [LocalBoardCount]Symbol `json:"globalBoard"`
	LocalBoards      [CellCount]Symbol       `json:"localBoards"`
	ActiveLocalBoard *int                    `json:"activeLocalBoard"`
	LastMove         *Move                   `json:"lastMove,omitempty"`

	Winner      Symbol    `json:"winner,omitempty"`
	WinningLine []int     `json:"winningLine,omitempty"`
	WinReason   WinReason `json:"winReason,omitempty"`

	TimeLimit         int     `json:"timeLimit,omitempty"`
	XPlayerTime       float64 `json:"xPlayerTime,omitempty"`
	OPlayerTime       float64 `json:"oPlayerTime,omitempty"`
	LastMoveTimestamp int64   `json:"lastMoveTimestamp,omitempty"`

	Chat               []ChatMessage `json:"chat,omitempty"`
	RematchRequestedBy []string      `json:"rematchRequestedBy,omitempty"`
	NextGameID         string        `json:"nextGameId,omitempty"`
}

// Clone returns a copy that shares nothing mutable with the receiver.
func (that *Game) Clone() *Game {
	if that == nil {
		return nil
	}

	clone := *that
	clone.XPlayer = that.XPlayer.Clone()
	clone.OPlayer = that.OPlayer.Clone()
	clone.PlayerIDs = slices.Clone(that.PlayerIDs)
	clone.WinningLine = slices.Clone(that.WinningLine)
	clone.Chat = slices.Clone(that.Chat)
	clone.RematchRequestedBy = slices.Clone(that.RematchRequestedBy)

	if that.ActiveLocalBoard != nil {
		board := *that.ActiveLocalBoard
		clone.ActiveLocalBoard = &board
	}

	if that.LastMove != nil {
		move := *that.LastMove
		clone.LastMove = &move
	}

	return &clone
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsLive() bool {
	return that.Status == StatusLive
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsTimed() bool {
	return that.TimeLimit > 0
}

// Seat returns the profile occupying the given seat, or nil.
func (that *Game) Seat(symbol Symbol) *PlayerProfile {
	switch symbol {
	case SymbolX:
		return that.XPlayer
	case SymbolO:
		return that.OPlayer
	default:
		return nil
	}
}

// SymbolOf returns the seat held by playerID, or NoSymbol.
func (that *Game) SymbolOf(playerID string) Symbol {
	switch {
	case that.XPlayer != nil && that.XPlayer.ID == playerID:
		return SymbolX
	case that.OPlayer != nil && that.OPlayer.ID == playerID:
		return SymbolO
	default:
		return NoSymbol
	}
}

func (that *Game) HasPlayer(playerID string) bool {
	return slices.Contains(that.PlayerIDs, playerID)
}

// PlacedCells counts occupied cells across all local boards.
func (that *Game) PlacedCells() int {
	placed := 0
	for _, cell := range that.LocalBoards {
		if cell != NoSymbol {
			placed++
		}
	}
	return placed
}

// BoardsWon counts local boards won outright by symbol.
func (that *Game) BoardsWon(symbol Symbol) int {
	won := 0
	for _, board := range that.GlobalBoard {
		if board == symbol {
			won++
		}
	}
	return won
}

// LocalBoard returns a copy of the nine cells of local board index.
func (that *Game) LocalBoard(index int) [BoardSize]Symbol {
	var board [BoardSize]Symbol
	copy(board[:], that.LocalBoards[index*BoardSize:(index+1)*BoardSize])
	return board
}

// RemainingTime returns the stored clock of the given seat in seconds.
func (that *Game) RemainingTime(symbol Symbol) float64 {
	if symbol == SymbolX {
		return that.XPlayerTime
	}
	return that.OPlayerTime
}

func (that *Game) SetRemainingTime(symbol Symbol, seconds float64) {
	if symbol == SymbolX {
		that.XPlayerTime = seconds
		return
	}
	that.OPlayerTime = seconds
}

func (that *Game) RematchRequested(playerID string) bool {
	return slices.Contains(that.RematchRequestedBy, playerID)
}
