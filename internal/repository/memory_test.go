package repository

import (
	"context"
	"testing"

	"github.com/duopair/gameroom-backend/internal/apperror"
	"github.com/duopair/gameroom-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRoomRepository_CreateOrUpdate(t *testing.T) {
	ctx := context.Background()
	roomRepo := NewMemoryRoomRepository()

	// Given: a room with one member
	room := entity.NewRoom("123")
	require.NoError(t, room.AddMember("c1"))

	// When: CreateOrUpdate is called
	err := roomRepo.CreateOrUpdate(ctx, room)

	// Then: no error should be returned, and the room is stored
	require.NoError(t, err)

	stored, err := roomRepo.GetByID(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, stored.Members)
}

func TestMemoryRoomRepository_GetByID(t *testing.T) {
	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx := context.Background()
		roomRepo := NewMemoryRoomRepository()

		// When: GetByID is called with non-existent ID
		retrievedRoom, err := roomRepo.GetByID(ctx, "9999999")

		// Then: an ErrRoomNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
		assert.Empty(t, retrievedRoom.ID)
	})

	t.Run("GetByID_ReturnsDetachedCopy", func(t *testing.T) {
		ctx := context.Background()
		roomRepo := NewMemoryRoomRepository()

		room := entity.NewRoom("123")
		require.NoError(t, room.AddMember("c1"))
		require.NoError(t, roomRepo.CreateOrUpdate(ctx, room))

		// When: the retrieved room is mutated
		retrieved, err := roomRepo.GetByID(ctx, "123")
		require.NoError(t, err)
		require.NoError(t, retrieved.AddMember("c2"))

		// Then: the stored record is unaffected
		stored, err := roomRepo.GetByID(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, stored.Members)
	})
}

func TestMemoryRoomRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()
	roomRepo := NewMemoryRoomRepository()

	// Given: a stored room
	room := entity.NewRoom("123")
	require.NoError(t, roomRepo.CreateOrUpdate(ctx, room))

	// When: DeleteByID is called with existing ID
	err := roomRepo.DeleteByID(ctx, "123")

	// Then: the room is gone
	require.NoError(t, err)

	_, err = roomRepo.GetByID(ctx, "123")
	require.ErrorIs(t, err, apperror.ErrRoomNotFound)
}
