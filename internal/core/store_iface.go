package core

import (
	"context"

	"github.com/dkeye/relay/internal/domain"
)

// RoomStore is the durable record of rooms. Read-mostly.
type RoomStore interface {
	CreateRoom(ctx context.Context, code string) (*domain.Room, error)
	Exists(ctx context.Context, id domain.RoomID) (bool, error)
	// Code fails with domain.ErrRoomNotFound if the room is absent.
	Code(ctx context.Context, id domain.RoomID) (domain.RoomCode, error)
	// ListRooms returns at most limit rooms; limit <= 0 yields none.
	ListRooms(ctx context.Context, limit int) ([]domain.Room, error)
}

// MembershipTable maps session ids to room ids independently of live sockets.
type MembershipTable interface {
	// Add fails with domain.ErrDuplicateSession if the session already has a row,
	// and with domain.ErrRoomNotFound if the room does not exist.
	Add(ctx context.Context, sid domain.SessionID, room domain.RoomID) error
	// MembersOf includes the caller's own session.
	MembersOf(ctx context.Context, room domain.RoomID) ([]domain.SessionID, error)
	// Remove is a no-op for an absent session.
	Remove(ctx context.Context, sid domain.SessionID) error
	// Purge drops every membership row.
	Purge(ctx context.Context) error
}

type Store interface {
	RoomStore
	MembershipTable
	Close() error
}
