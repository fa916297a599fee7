package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/duopair/gameroom-backend/internal/entity"
)

type TurnDataPayload struct {
	Board    json.RawMessage `json:"board"`
	NextTurn string          `json:"next_turn"`
	WinLine  json.RawMessage `json:"win_line,omitempty"`
}

// RelayTurn forwards a turn update to every member of the sender's room,
// the sender included; clients tolerate their own echo. The triple is
// stored as the room's turn state and passed through without any game-rules
// interpretation. Sends happen inside the room's critical section, which
// keeps per-room order.
func (that *Coordinator) RelayTurn(ctx context.Context, connectionID string, board json.RawMessage, nextTurn string, winLine json.RawMessage) error {
	log := that.logger.With("method", "RelayTurn", "connectionID", connectionID)

	ref, ok := that.currentRoom(connectionID)
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrConnectionNotFound, connectionID)
	}

	roomID := ref.RoomID()

	unlock := that.lockRoom(roomID)
	defer unlock()

	room, err := that.rooms.GetByID(ctx, roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		// The room vanished under the sender; drop the relay.
		log.Warn("dropping turn relay to vanished room", "roomID", roomID)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	room.Turn = entity.TurnState{Board: board, Next: nextTurn, WinLine: winLine}
	if err = that.rooms.CreateOrUpdate(ctx, room); err != nil {
		return fmt.Errorf("failed to store turn state: %w", err)
	}

	payload := TurnDataPayload{Board: board, NextTurn: nextTurn, WinLine: winLine}

	// A failed send to one member never costs the other its delivery.
	for _, member := range room.Members {
		if err = that.sender.Send(member, EventTurnData, payload); err != nil {
			log.Warn("failed to deliver turn data", "connectionID", member, "error", err)
		}
	}

	return nil
}
