package store

import (
	"context"
	"sync"

	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Memory is a threadsafe in-process store. Nothing survives a restart.
type Memory struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]domain.Room
	order   []domain.RoomID
	members map[domain.SessionID]domain.RoomID
	byRoom  map[domain.RoomID]map[domain.SessionID]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		rooms:   make(map[domain.RoomID]domain.Room),
		members: make(map[domain.SessionID]domain.RoomID),
		byRoom:  make(map[domain.RoomID]map[domain.SessionID]struct{}),
	}
}

func (m *Memory) CreateRoom(_ context.Context, code string) (*domain.Room, error) {
	room, err := domain.NewRoom(code)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.rooms[room.ID] = *room
	m.order = append(m.order, room.ID)
	m.mu.Unlock()
	log.Info().Str("module", "store.memory").Str("room", string(room.ID)).Str("code", code).Msg("room created")
	return room, nil
}

func (m *Memory) Exists(_ context.Context, id domain.RoomID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[id]
	return ok, nil
}

func (m *Memory) Code(_ context.Context, id domain.RoomID) (domain.RoomCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	return room.Code, nil
}

// ListRooms returns rooms in creation order.
func (m *Memory) ListRooms(_ context.Context, limit int) ([]domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := max(0, min(limit, len(m.order)))
	out := make([]domain.Room, 0, n)
	for _, id := range m.order[:n] {
		out = append(out, m.rooms[id])
	}
	return out, nil
}

func (m *Memory) Add(_ context.Context, sid domain.SessionID, room domain.RoomID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[room]; !ok {
		return domain.ErrRoomNotFound
	}
	if _, ok := m.members[sid]; ok {
		return domain.ErrDuplicateSession
	}
	m.members[sid] = room
	set, ok := m.byRoom[room]
	if !ok {
		set = make(map[domain.SessionID]struct{})
		m.byRoom[room] = set
	}
	set[sid] = struct{}{}
	return nil
}

func (m *Memory) MembersOf(_ context.Context, room domain.RoomID) ([]domain.SessionID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.byRoom[room]), nil
}

func (m *Memory) Remove(_ context.Context, sid domain.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.members[sid]
	if !ok {
		return nil
	}
	delete(m.members, sid)
	if set, ok := m.byRoom[room]; ok {
		delete(set, sid)
		if len(set) == 0 {
			delete(m.byRoom, room)
		}
	}
	return nil
}

func (m *Memory) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[domain.SessionID]domain.RoomID)
	m.byRoom = make(map[domain.RoomID]map[domain.SessionID]struct{})
	return nil
}

func (m *Memory) Close() error { return nil }
