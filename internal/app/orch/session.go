package orch

import (
	"sync/atomic"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
)

type SessionState int32

const (
	StateJoining SessionState = iota
	StateActive
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session is the live association between one connection and one room.
// It moves Joining -> Active -> Terminated and never goes back.
type Session struct {
	ID   domain.SessionID
	Room domain.Room

	conn  core.SignalConnection
	state atomic.Int32
}

func newSession(room domain.Room, conn core.SignalConnection) *Session {
	return &Session{ID: domain.NewSessionID(), Room: room, conn: conn}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) activate() bool {
	return s.state.CompareAndSwap(int32(StateJoining), int32(StateActive))
}

// terminate reports the state it left and whether this call won the transition.
func (s *Session) terminate() (SessionState, bool) {
	for {
		cur := s.state.Load()
		if SessionState(cur) == StateTerminated {
			return StateTerminated, false
		}
		if s.state.CompareAndSwap(cur, int32(StateTerminated)) {
			return SessionState(cur), true
		}
	}
}
