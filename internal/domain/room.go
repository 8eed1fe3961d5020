// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxRoomCodeLen = 36

var (
	ErrRoomCodeEmpty   = errors.New("room code empty")
	ErrRoomCodeTooLong = errors.New("room code too long")
)

type (
	RoomID   string
	RoomCode string
)

// Room is the durable identity of a relay room.
// Code is a display label; only ID is unique.
type Room struct {
	ID   RoomID   `json:"room_id"`
	Code RoomCode `json:"room_code"`
}

// NewRoom validates the code and assigns a fresh id.
func NewRoom(code string) (*Room, error) {
	if len(code) == 0 {
		return nil, ErrRoomCodeEmpty
	}
	if len(code) > MaxRoomCodeLen {
		return nil, ErrRoomCodeTooLong
	}
	return &Room{ID: RoomID(uuid.NewString()), Code: RoomCode(code)}, nil
}
