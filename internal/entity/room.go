package entity

import (
	"encoding/json"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/samber/lo"
)

const (
	// MaxMembers is the room capacity; a room never holds more than two seats.
	MaxMembers = 2

	// FirstMover is the mark of the first-seated participant; it always moves first.
	FirstMover = "X"
)

// TurnState is the last relayed turn. The board and win line are kept as raw
// JSON: the relay retransmits them verbatim and never interprets them.
type TurnState struct {
	Board   json.RawMessage `json:"board,omitempty"`
	Next    string          `json:"next_turn,omitempty"`
	WinLine json.RawMessage `json:"win_line,omitempty"`
}

// Room is a matchable session identified by an opaque token.
type Room struct {
	ID      string    `json:"id"`
	Members []string  `json:"members"`
	Turn    TurnState `json:"turn,omitempty"`
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		Members: []string{},
	}
}

func (that *Room) IsEmpty() bool {
	return len(that.Members) == 0
}

func (that *Room) IsWaiting() bool {
	return len(that.Members) == 1
}

func (that *Room) IsReady() bool {
	return len(that.Members) == MaxMembers
}

func (that *Room) HasMember(connectionID string) bool {
	return lo.Contains(that.Members, connectionID)
}

// AddMember seats a connection. Re-adding an existing member is a no-op.
func (that *Room) AddMember(connectionID string) error {
	if that.HasMember(connectionID) {
		return nil
	}

	if len(that.Members) >= MaxMembers {
		return apperror.ErrRoomFull
	}

	that.Members = append(that.Members, connectionID)

	return nil
}

func (that *Room) RemoveMember(connectionID string) {
	that.Members = lo.Filter(that.Members, func(id string, _ int) bool {
		return id != connectionID
	})
}

// ResetTurn rewinds the room to a fresh session with the fixed first mover.
func (that *Room) ResetTurn() {
	that.Turn = TurnState{Next: FirstMover}
}
