package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/duopair/gameroom-backend/internal/entity"
	"github.com/samber/lo"
)

// RequestJoin decides what an incoming token means for the connection:
// complete an existing waiting room, or stay put and hand out an invite
// link. A full room, an unknown token and a self-join all degrade to the
// invite branch; none of them is a user-visible error.
func (that *Coordinator) RequestJoin(ctx context.Context, connectionID, roomToken string) error {
	ref, ok := that.currentRoom(connectionID)
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrConnectionNotFound, connectionID)
	}

	currentID := ref.RoomID()

	// An empty token means "no preference": wait in the current room.
	targetID := roomToken
	if targetID == "" {
		targetID = currentID
	}

	unlock := that.lockRooms(currentID, targetID)
	defer unlock()

	if targetID == currentID {
		return that.offerInvite(connectionID, currentID)
	}

	// Membership is re-read under the lock; the loser of a concurrent join
	// must not act on a stale read.
	target, err := that.rooms.GetByID(ctx, targetID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return that.offerInvite(connectionID, currentID)
	}

	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	that.evictStaleMembers(ctx, target)

	if !target.IsWaiting() || target.HasMember(connectionID) {
		return that.offerInvite(connectionID, currentID)
	}

	return that.pairUp(ctx, connectionID, currentID, target)
}

// pairUp moves the requester out of its current room into the waiting
// target and reports the ready session to both seats. Callers hold the
// locks of both rooms.
func (that *Coordinator) pairUp(ctx context.Context, connectionID, currentID string, target *entity.Room) error {
	log := that.logger.With("method", "pairUp", "connectionID", connectionID, "roomID", target.ID)

	if err := that.leaveRoom(ctx, connectionID, currentID); err != nil {
		return fmt.Errorf("failed to leave room %s: %w", currentID, err)
	}

	if err := target.AddMember(connectionID); err != nil {
		return fmt.Errorf("failed to seat second member: %w", err)
	}

	target.ResetTurn()

	if err := that.rooms.CreateOrUpdate(ctx, target); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	for _, member := range target.Members {
		that.setRoom(member, entity.PairedRoom(target.ID))
	}

	payload := GameStartPayload{Room: target.ID, Turn: entity.FirstMover}
	for _, member := range target.Members {
		if err := that.sender.Send(member, EventGameStart, payload); err != nil {
			log.Warn("failed to deliver game start", "connectionID", member, "error", err)
		}
	}

	log.Info("room is ready")

	return nil
}

// leaveRoom removes the connection from the room it is leaving behind. A
// member left alone there gets the same abandonment signal as on a
// disconnect.
func (that *Coordinator) leaveRoom(ctx context.Context, connectionID, roomID string) error {
	room, err := that.rooms.GetByID(ctx, roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	room.RemoveMember(connectionID)

	if err = that.storeOrDrop(ctx, room); err != nil {
		return err
	}

	that.notifyDeparture(room)

	return nil
}

// offerInvite answers with a shareable link to the requester's own room.
func (that *Coordinator) offerInvite(connectionID, roomID string) error {
	payload := InviteLinkPayload{URL: that.origin + "/" + roomID}

	if err := that.sender.Send(connectionID, EventInviteLink, payload); err != nil {
		return fmt.Errorf("failed to deliver invite link: %w", err)
	}

	return nil
}

// evictStaleMembers drops members with no live connection before the seat
// count is taken. A redis-backed table can hold rooms from a previous run;
// a ghost member must never complete a pairing.
func (that *Coordinator) evictStaleMembers(ctx context.Context, room *entity.Room) {
	log := that.logger.With("method", "evictStaleMembers", "roomID", room.ID)

	live := lo.Filter(room.Members, func(id string, _ int) bool {
		return that.registered(id)
	})

	if len(live) == len(room.Members) {
		return
	}

	log.Warn("dropping stale room members",
		"dropped", len(room.Members)-len(live),
		"error", apperror.ErrStaleConnection,
	)

	room.Members = live

	if room.IsEmpty() {
		if err := that.rooms.DeleteByID(ctx, room.ID); err != nil {
			log.Error("failed to delete stale room", "error", err)
		}

		return
	}

	if err := that.rooms.CreateOrUpdate(ctx, room); err != nil {
		log.Error("failed to update room", "error", err)
	}
}
