package app

import (
	"sync"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry is the process-local Connection Registry: session id -> live handle.
// It is never persisted and starts empty.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.SessionID]core.SignalConnection
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.SessionID]core.SignalConnection),
	}
}

func (r *Registry) Register(sid domain.SessionID, conn core.SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[sid]; ok {
		return domain.ErrDuplicateSession
	}
	r.conns[sid] = conn
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("registered connection")
	return nil
}

// Lookup tolerates absence: a member may have lost its socket before its
// membership row is cleaned up.
func (r *Registry) Lookup(sid domain.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[sid]
	return conn, ok
}

func (r *Registry) Unregister(sid domain.SessionID) (core.SignalConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[sid]
	if !ok {
		return nil, false
	}
	delete(r.conns, sid)
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Msg("unregistered connection")
	return conn, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
