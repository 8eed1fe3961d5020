package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room id has no Room Store entry.
	ErrRoomNotFound = errors.New("room not found")
	// ErrDuplicateSession means a session id was registered twice.
	ErrDuplicateSession = errors.New("duplicate session")
	// ErrPeerUnreachable marks a failed forward to a single peer.
	ErrPeerUnreachable = errors.New("peer unreachable")
	// ErrConnectionTerminated is the expected end of a session's life.
	ErrConnectionTerminated = errors.New("connection terminated")
)
