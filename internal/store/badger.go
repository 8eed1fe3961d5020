package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/relay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Key layout:
//
//	room:{room_id}                 -> json Room
//	member:{session_id}            -> room_id
//	roommember:{room_id}:{sid}     -> empty
const (
	roomPrefix       = "room:"
	memberPrefix     = "member:"
	roomMemberPrefix = "roommember:"

	maxConflictRetries = 3
)

func roomKey(id domain.RoomID) []byte { return []byte(roomPrefix + string(id)) }
func memberKey(sid domain.SessionID) []byte { return []byte(memberPrefix + string(sid)) }
func roomMembersPrefix(id domain.RoomID) []byte {
	return []byte(roomMemberPrefix + string(id) + ":")
}
func roomMemberKey(id domain.RoomID, sid domain.SessionID) []byte {
	return append(roomMembersPrefix(id), string(sid)...)
}

// Badger persists rooms and memberships in an embedded badger database.
type Badger struct {
	db *badger.DB
}

func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{
		l: log.With().Str("module", "store.badger").Logger(),
	})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Badger{db: db}, nil
}

// NewBadger wraps an already opened database.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

func (b *Badger) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxConflictRetries {
		err = b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (b *Badger) CreateRoom(_ context.Context, code string) (*domain.Room, error) {
	room, err := domain.NewRoom(code)
	if err != nil {
		return nil, err
	}
	val, err := json.Marshal(room)
	if err != nil {
		return nil, err
	}
	if err := b.update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), val)
	}); err != nil {
		return nil, fmt.Errorf("store room: %w", err)
	}
	log.Info().Str("module", "store.badger").Str("room", string(room.ID)).Str("code", code).Msg("room created")
	return room, nil
}

func (b *Badger) Exists(_ context.Context, id domain.RoomID) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(id))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (b *Badger) Code(_ context.Context, id domain.RoomID) (domain.RoomCode, error) {
	var room domain.Room
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &room)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", domain.ErrRoomNotFound
	}
	if err != nil {
		return "", err
	}
	return room.Code, nil
}

func (b *Badger) ListRooms(_ context.Context, limit int) ([]domain.Room, error) {
	out := make([]domain.Room, 0)
	if limit <= 0 {
		return out, nil
	}
	prefix := []byte(roomPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var room domain.Room
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &room)
			}); err != nil {
				return err
			}
			out = append(out, room)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

func (b *Badger) Add(_ context.Context, sid domain.SessionID, room domain.RoomID) error {
	return b.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrRoomNotFound
			}
			return err
		}
		_, err := txn.Get(memberKey(sid))
		switch {
		case err == nil:
			return domain.ErrDuplicateSession
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(memberKey(sid), []byte(room)); err != nil {
			return err
		}
		return txn.Set(roomMemberKey(room, sid), nil)
	})
}

func (b *Badger) MembersOf(_ context.Context, room domain.RoomID) ([]domain.SessionID, error) {
	prefix := roomMembersPrefix(room)
	var out []domain.SessionID
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			out = append(out, domain.SessionID(key[len(prefix):]))
		}
		return nil
	})
	return out, err
}

func (b *Badger) Remove(_ context.Context, sid domain.SessionID) error {
	return b.update(func(txn *badger.Txn) error {
		item, err := txn.Get(memberKey(sid))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		room, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(memberKey(sid)); err != nil {
			return err
		}
		return txn.Delete(roomMemberKey(domain.RoomID(room), sid))
	})
}

func (b *Badger) Purge(_ context.Context) error {
	return b.db.DropPrefix([]byte(memberPrefix), []byte(roomMemberPrefix))
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	l zerolog.Logger
}

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Trace().Msgf(strings.TrimSpace(format), args...)
}
