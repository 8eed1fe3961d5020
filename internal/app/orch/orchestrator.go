package orch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dkeye/relay/internal/app"
	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Orchestrator owns session lifecycle and fan-out. Every connection task
// shares one instance; all its state is internally synchronized.
type Orchestrator struct {
	Rooms    core.RoomStore
	Members  core.MembershipTable
	Registry *app.Registry
	Policy   app.Policy

	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
	active   atomic.Int64
}

func New(rooms core.RoomStore, members core.MembershipTable, policy app.Policy) *Orchestrator {
	return &Orchestrator{
		Rooms:    rooms,
		Members:  members,
		Registry: app.NewRegistry(),
		Policy:   policy,
		sessions: make(map[domain.SessionID]*Session),
	}
}

// ActiveCount is the number of sessions that completed Join and have not
// been torn down.
func (o *Orchestrator) ActiveCount() int64 {
	return o.active.Load()
}

func (o *Orchestrator) Session(sid domain.SessionID) (*Session, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[sid]
	return s, ok
}

func (o *Orchestrator) track(s *Session) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sessions[s.ID]; ok {
		return domain.ErrDuplicateSession
	}
	o.sessions[s.ID] = s
	return nil
}

func (o *Orchestrator) untrack(sid domain.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessions, sid)
}

// OnFrame relays data from sid to every other member of its room that still
// has a live connection. Delivery is best effort: absent peers are skipped and
// failed peers are handed to the Policy without affecting the rest.
func (o *Orchestrator) OnFrame(ctx context.Context, sid domain.SessionID, data core.Frame) core.PublishResult {
	res := core.PublishResult{}
	sess, ok := o.Session(sid)
	if !ok || sess.State() != StateActive {
		return res
	}
	roomID := sess.Room.ID

	members, err := o.Members.MembersOf(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("members lookup failed")
		return res
	}

	for _, peer := range lo.Without(members, sid) {
		conn, ok := o.Registry.Lookup(peer)
		if !ok {
			res.Skipped++
			continue
		}
		if err := conn.TrySend(data); err != nil {
			log.Warn().
				Err(err).
				Str("module", "orch").
				Str("room", string(roomID)).
				Str("peer", string(peer)).
				Msg(domain.ErrPeerUnreachable.Error())
			res.Dropped = append(res.Dropped, peer)
			continue
		}
		res.SendTo++
	}
	log.Debug().
		Str("module", "orch").
		Str("from", string(sid)).
		Str("room", string(roomID)).
		Int("sent_to", res.SendTo).
		Int("skipped", res.Skipped).
		Int("dropped", len(res.Dropped)).
		Msg("broadcast result")

	if o.Policy == nil {
		return res
	}
	for _, peer := range res.Dropped {
		switch o.Policy.OnPeerUnreachable(roomID, peer, domain.ErrPeerUnreachable) {
		case app.TerminatePeer:
			o.Terminate(ctx, peer, domain.ErrPeerUnreachable)
		case app.NoAction:
		}
	}
	return res
}
