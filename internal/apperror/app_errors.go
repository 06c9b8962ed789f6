package apperror

import "errors"

// Rejection is a recoverable rule violation. The game record is left untouched
// and Message is safe to show to the player.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (that *Rejection) Error() string {
	return that.Message
}

func newRejection(code, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}

// Move validation, in the order they are checked.
var (
	ErrNotActive    = newRejection("not_active", "game not found or is not active")
	ErrNotInGame    = newRejection("not_in_game", "player not in game")
	ErrNotYourTurn  = newRejection("not_your_turn", "it's not your turn")
	ErrWrongBoard   = newRejection("wrong_board", "you must play in the indicated board")
	ErrCellTaken    = newRejection("cell_taken", "cell is already taken")
	ErrBoardDecided = newRejection("board_decided", "this local board has already been decided")
	ErrInvalidMove  = newRejection("invalid_move", "move is out of bounds")
)

// Lifecycle.
var (
	ErrNotAvailable       = newRejection("not_available", "game is not available to join")
	ErrCannotJoinOwnGame  = newRejection("cannot_join_own_game", "you cannot join your own game")
	ErrRematchUnavailable = newRejection("rematch_unavailable", "rematch is only available for finished games")
	ErrClockNotExpired    = newRejection("clock_not_expired", "player still has time on the clock")
	ErrInvalidMessage     = newRejection("invalid_message", "message must be between 1 and 500 characters")
)

// IsRejection reports whether err carries a Rejection.
func IsRejection(err error) bool {
	var rejection *Rejection
	return errors.As(err, &rejection)
}

// AsRejection extracts the Rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection, true
	}
	return nil, false
}
