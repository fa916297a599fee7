package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/duopair/gameroom-backend/internal/entity"
	"github.com/google/uuid"
)

// Event names on the client-facing message surface.
const (
	EventGameStart  = "gameStart"
	EventInviteLink = "inviteLink"
	EventTurnData   = "getTurnData"
	EventPlayerLeft = "playerLeft"
)

const opponentLeftMessage = "your opponent left the game"

// Sender delivers an outgoing event to one connection. The transport adapter
// implements it; delivery is best-effort.
type Sender interface {
	Send(connectionID, event string, payload any) error
}

type roomRepo interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	DeleteByID(ctx context.Context, id string) error
}

type GameStartPayload struct {
	Room string `json:"room"`
	Turn string `json:"turn"`
}

type InviteLinkPayload struct {
	URL string `json:"url"`
}

type PlayerLeftPayload struct {
	Message string `json:"message"`
}

// Coordinator is the session core: it registers connections, admits them
// into rooms and relays turn data between room members. All mutation of
// room membership goes through it, inside a per-room critical section.
type Coordinator struct {
	logger *slog.Logger
	rooms  roomRepo
	sender Sender
	origin string

	mu    sync.Mutex
	conns map[string]*entity.Connection
	locks map[string]*roomLock
}

func New(logger *slog.Logger, rooms roomRepo, sender Sender, publicOrigin string) *Coordinator {
	return &Coordinator{
		logger: logger,
		rooms:  rooms,
		sender: sender,
		origin: strings.TrimRight(publicOrigin, "/"),

		conns: make(map[string]*entity.Connection),
		locks: make(map[string]*roomLock),
	}
}

// Connect registers a new connection and seats it alone in its solo room.
func (that *Coordinator) Connect(ctx context.Context) (*entity.Connection, error) {
	log := that.logger.With("method", "Connect")

	conn := entity.NewConnection(uuid.NewString())

	room := entity.NewRoom(conn.ID)
	if err := room.AddMember(conn.ID); err != nil {
		return nil, fmt.Errorf("failed to seat connection in solo room: %w", err)
	}

	unlock := that.lockRoom(room.ID)
	defer unlock()

	if err := that.rooms.CreateOrUpdate(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to store solo room: %w", err)
	}

	that.mu.Lock()
	that.conns[conn.ID] = conn
	that.mu.Unlock()

	log.Info("connection registered", "connectionID", conn.ID)

	// A detached copy: the registry record may be repointed by a later
	// pairing, on another connection's goroutine.
	return &entity.Connection{ID: conn.ID, Room: conn.Room}, nil
}

// Disconnect removes the connection from its room, notifies the remaining
// member and drops the connection record. The member is removed before the
// notice goes out, so a racing join always sees the reduced membership.
func (that *Coordinator) Disconnect(ctx context.Context, connectionID string) error {
	log := that.logger.With("method", "Disconnect", "connectionID", connectionID)

	ref, ok := that.currentRoom(connectionID)
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrConnectionNotFound, connectionID)
	}

	roomID := ref.RoomID()

	unlock := that.lockRoom(roomID)
	defer unlock()

	room, err := that.rooms.GetByID(ctx, roomID)

	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		// nothing to leave
	case err != nil:
		return fmt.Errorf("failed to get room: %w", err)
	default:
		room.RemoveMember(connectionID)

		if err = that.storeOrDrop(ctx, room); err != nil {
			return err
		}

		that.notifyDeparture(room)
	}

	that.mu.Lock()
	delete(that.conns, connectionID)
	that.mu.Unlock()

	log.Info("connection left", "roomID", roomID)

	return nil
}

// notifyDeparture tells every remaining member the opponent is gone. The
// room was already rewound to a fresh waiting session.
func (that *Coordinator) notifyDeparture(room *entity.Room) {
	log := that.logger.With("method", "notifyDeparture", "roomID", room.ID)

	payload := PlayerLeftPayload{Message: opponentLeftMessage}

	for _, member := range room.Members {
		if err := that.sender.Send(member, EventPlayerLeft, payload); err != nil {
			log.Warn("failed to notify remaining member", "connectionID", member, "error", err)
		}
	}
}

// storeOrDrop persists a room after a member left, or deletes it once empty.
// A surviving room starts over as a fresh waiting session.
func (that *Coordinator) storeOrDrop(ctx context.Context, room *entity.Room) error {
	if room.IsEmpty() {
		if err := that.rooms.DeleteByID(ctx, room.ID); err != nil {
			return fmt.Errorf("failed to delete empty room: %w", err)
		}

		return nil
	}

	room.ResetTurn()

	if err := that.rooms.CreateOrUpdate(ctx, room); err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

// currentRoom reads a connection's room reference under the registry lock.
// RoomRef is a value, so the caller holds a stable copy.
func (that *Coordinator) currentRoom(connectionID string) (entity.RoomRef, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	conn, ok := that.conns[connectionID]
	if !ok {
		return entity.RoomRef{}, false
	}

	return conn.Room, true
}

func (that *Coordinator) registered(id string) bool {
	_, ok := that.currentRoom(id)
	return ok
}

func (that *Coordinator) setRoom(connectionID string, ref entity.RoomRef) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if conn, ok := that.conns[connectionID]; ok {
		conn.Room = ref
	}
}

// roomLock is a mutual-exclusion scope keyed by room id. Entries are
// refcounted so the table does not grow with dead rooms.
type roomLock struct {
	mu   sync.Mutex
	refs int
}

func (that *Coordinator) lockRoom(id string) func() {
	that.mu.Lock()
	lock, ok := that.locks[id]
	if !ok {
		lock = &roomLock{}
		that.locks[id] = lock
	}
	lock.refs++
	that.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		that.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(that.locks, id)
		}
		that.mu.Unlock()
	}
}

// lockRooms takes both room locks in sorted id order, so concurrent
// two-room moves cannot deadlock.
func (that *Coordinator) lockRooms(a, b string) func() {
	if a == b {
		return that.lockRoom(a)
	}

	first, second := a, b
	if second < first {
		first, second = second, first
	}

	unlockFirst := that.lockRoom(first)
	unlockSecond := that.lockRoom(second)

	return func() {
		unlockSecond()
		unlockFirst()
	}
}
