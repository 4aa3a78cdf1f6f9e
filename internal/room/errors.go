package room

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidMode     = errors.New("invalid mode: must be 'poll', 'game' or 'observe'")
	ErrInvalidPosition = errors.New("invalid position")
)
