package repository

import (
	"context"
	"sync"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/duopair/gameroom-backend/internal/entity"
)

// memoryRoom keeps rooms in process memory. This is the default backend:
// rooms die with the process, matching the room lifecycle.
type memoryRoom struct {
	mu    sync.RWMutex
	rooms map[string]*entity.Room
}

func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoom{
		rooms: make(map[string]*entity.Room),
	}
}

func (that *memoryRoom) CreateOrUpdate(_ context.Context, room *entity.Room) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.rooms[room.ID] = copyRoom(room)

	return nil
}

func (that *memoryRoom) GetByID(_ context.Context, id string) (*entity.Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	room, ok := that.rooms[id]
	if !ok {
		return &entity.Room{}, apperror.ErrRoomNotFound
	}

	return copyRoom(room), nil
}

func (that *memoryRoom) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, id)

	return nil
}

// copyRoom detaches the stored record from the caller's value, so later
// mutations of one never leak into the other.
func copyRoom(room *entity.Room) *entity.Room {
	clone := *room
	clone.Members = append([]string(nil), room.Members...)

	return &clone
}
