package entity

// RoomRef is a connection's room membership: either the solo room it was
// seeded with at connect time, or the room it was paired into. Keeping the
// two states apart removes the "is this id a room or a connection" ambiguity
// of token matchmaking.
type RoomRef struct {
	roomID string
	paired bool
}

// SoloRoom references the singleton room a connection owns by default.
func SoloRoom(ownID string) RoomRef {
	return RoomRef{roomID: ownID}
}

// PairedRoom references a room the connection was admitted into.
func PairedRoom(roomID string) RoomRef {
	return RoomRef{roomID: roomID, paired: true}
}

// RoomID is the current room either way.
func (that RoomRef) RoomID() string {
	return that.roomID
}

func (that RoomRef) IsPaired() bool {
	return that.paired
}

// Connection is one transport-level endpoint. The coordinator owns Room;
// no other component mutates it.
type Connection struct {
	ID   string
	Room RoomRef
}

func NewConnection(id string) *Connection {
	return &Connection{
		ID:   id,
		Room: SoloRoom(id),
	}
}
