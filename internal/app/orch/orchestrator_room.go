package orch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Join validates the room, creates a session for conn and makes it
// discoverable. The join acknowledgment is the first frame queued on conn.
// On any error no session exists and the caller must close conn.
func (o *Orchestrator) Join(ctx context.Context, roomID domain.RoomID, conn core.SignalConnection) (*Session, error) {
	ok, err := o.Rooms.Exists(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("room lookup: %w", err)
	}
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	code, err := o.Rooms.Code(ctx, roomID)
	if err != nil {
		return nil, err
	}

	sess := newSession(domain.Room{ID: roomID, Code: code}, conn)
	if err := o.track(sess); err != nil {
		return nil, err
	}
	if err := o.Members.Add(ctx, sess.ID, roomID); err != nil {
		o.untrack(sess.ID)
		return nil, fmt.Errorf("add membership: %w", err)
	}

	ack, err := json.Marshal(sess.Room)
	if err == nil {
		err = conn.TrySend(ack)
	}
	if err != nil {
		o.rollbackJoin(ctx, sess)
		return nil, fmt.Errorf("join ack: %w", err)
	}

	if err := o.Registry.Register(sess.ID, conn); err != nil {
		o.rollbackJoin(ctx, sess)
		return nil, err
	}
	o.active.Add(1)
	if !sess.activate() {
		// torn down while joining; that teardown saw Joining and left the
		// count and any late registrations to us
		o.active.Add(-1)
		o.Registry.Unregister(sess.ID)
		o.rollbackJoin(ctx, sess)
		return nil, domain.ErrConnectionTerminated
	}

	log.Info().
		Str("module", "orch").
		Str("sid", string(sess.ID)).
		Str("room", string(roomID)).
		Int64("active", o.ActiveCount()).
		Msg("session joined")
	return sess, nil
}

func (o *Orchestrator) rollbackJoin(ctx context.Context, sess *Session) {
	sess.terminate()
	if err := o.Members.Remove(context.WithoutCancel(ctx), sess.ID); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Msg("rollback membership")
	}
	o.untrack(sess.ID)
}

// Terminate tears a session down. It may be called any number of times from
// any goroutine; only the first call has an effect. It reports whether this
// call performed the teardown.
func (o *Orchestrator) Terminate(ctx context.Context, sid domain.SessionID, reason error) bool {
	sess, ok := o.Session(sid)
	if !ok {
		return false
	}
	prev, won := sess.terminate()
	if !won {
		return false
	}

	o.Registry.Unregister(sid)
	if err := o.Members.Remove(context.WithoutCancel(ctx), sid); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("remove membership")
	}
	if prev == StateActive {
		o.active.Add(-1)
	}
	o.untrack(sid)
	sess.conn.Close()

	ev := log.Info()
	if reason != nil && !errors.Is(reason, domain.ErrConnectionTerminated) {
		ev = log.Warn().Err(reason)
	}
	ev.Str("module", "orch").
		Str("sid", string(sid)).
		Str("room", string(sess.Room.ID)).
		Str("from_state", prev.String()).
		Int64("active", o.ActiveCount()).
		Msg("session terminated")
	return true
}

// EvictRoom terminates every live session of a room.
func (o *Orchestrator) EvictRoom(ctx context.Context, roomID domain.RoomID) int {
	o.mu.RLock()
	victims := lo.FilterMap(lo.Values(o.sessions), func(s *Session, _ int) (domain.SessionID, bool) {
		return s.ID, s.Room.ID == roomID
	})
	o.mu.RUnlock()

	n := 0
	for _, sid := range victims {
		if o.Terminate(ctx, sid, domain.ErrConnectionTerminated) {
			n++
		}
	}
	return n
}

// Shutdown terminates every session. Active count is zero afterwards.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.RLock()
	all := lo.Keys(o.sessions)
	o.mu.RUnlock()

	for _, sid := range all {
		o.Terminate(ctx, sid, domain.ErrConnectionTerminated)
	}
	log.Info().Str("module", "orch").Int("sessions", len(all)).Msg("all sessions terminated")
}
