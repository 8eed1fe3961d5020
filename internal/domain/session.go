package domain

import "github.com/google/uuid"

// SessionID identifies one connection's stay in one room. Never reused.
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}
