package apperror

import "errors"

var (
	ErrRoomFull            = errors.New("room already has two members")
	ErrRoomNotFound        = errors.New("room not found")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrStaleConnection     = errors.New("connection is no longer live")
	ErrConnectionSendQueue = errors.New("connection send queue is full")
)
