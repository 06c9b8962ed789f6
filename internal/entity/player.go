package entity

// Player is the account-owned record. The game core only touches Wins and Losses.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon,omitempty"`
	Color  string `json:"color,omitempty"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// Profile snapshots the display identity for embedding into a game.
func (that *Player) Profile() *PlayerProfile {
	return &PlayerProfile{
		ID:    that.ID,
		Name:  that.Name,
		Icon:  that.Icon,
		Color: that.Color,
	}
}

// PlayerProfile is the identity embedded in a Game at create/join time.
type PlayerProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

func (that *PlayerProfile) Clone() *PlayerProfile {
	if that == nil {
		return nil
	}
	clone := *that
	return &clone
}

type Move struct {
	Player          Symbol `json:"player"`
	LocalBoardIndex int    `json:"localBoardIndex"`
	CellIndex       int    `json:"cellIndex"`
}

// FlatIndex is the position of the move inside Game.LocalBoards.
func (that Move) FlatIndex() int {
	return that.LocalBoardIndex*BoardSize + that.CellIndex
}

type ChatMessage struct {
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}
