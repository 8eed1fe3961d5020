package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/relay/internal/core"
	"github.com/dkeye/relay/internal/domain"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) core.Store) {
	ctx := context.Background()

	t.Run("create and read room", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)

		room, err := s.CreateRoom(ctx, "ABCD")
		req.NoError(err)
		req.NotEmpty(room.ID)
		req.Equal(domain.RoomCode("ABCD"), room.Code)

		ok, err := s.Exists(ctx, room.ID)
		req.NoError(err)
		req.True(ok)

		code, err := s.Code(ctx, room.ID)
		req.NoError(err)
		req.Equal(domain.RoomCode("ABCD"), code)
	})

	t.Run("unknown room", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)

		ok, err := s.Exists(ctx, "missing")
		req.NoError(err)
		req.False(ok)

		_, err = s.Code(ctx, "missing")
		req.ErrorIs(err, domain.ErrRoomNotFound)
	})

	t.Run("room code is not unique", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)

		r1, err := s.CreateRoom(ctx, "SAME")
		req.NoError(err)
		r2, err := s.CreateRoom(ctx, "SAME")
		req.NoError(err)
		req.NotEqual(r1.ID, r2.ID)
	})

	t.Run("empty code rejected", func(t *testing.T) {
		_, err := newStore(t).CreateRoom(ctx, "")
		require.ErrorIs(t, err, domain.ErrRoomCodeEmpty)
	})

	t.Run("list rooms honours limit", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)

		rooms, err := s.ListRooms(ctx, 10)
		req.NoError(err)
		req.Empty(rooms)

		var created []domain.Room
		for _, code := range []string{"A", "B", "C"} {
			room, err := s.CreateRoom(ctx, code)
			req.NoError(err)
			created = append(created, *room)
		}

		rooms, err = s.ListRooms(ctx, 10)
		req.NoError(err)
		req.ElementsMatch(created, rooms)

		rooms, err = s.ListRooms(ctx, 2)
		req.NoError(err)
		req.Len(rooms, 2)
		req.Subset(created, rooms)

		rooms, err = s.ListRooms(ctx, 0)
		req.NoError(err)
		req.Empty(rooms)
	})

	t.Run("membership add and members of", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		r1, err := s.CreateRoom(ctx, "R1")
		req.NoError(err)
		r2, err := s.CreateRoom(ctx, "R2")
		req.NoError(err)

		req.NoError(s.Add(ctx, "a", r1.ID))
		req.NoError(s.Add(ctx, "b", r1.ID))
		req.NoError(s.Add(ctx, "c", r2.ID))

		members, err := s.MembersOf(ctx, r1.ID)
		req.NoError(err)
		req.ElementsMatch([]domain.SessionID{"a", "b"}, members)

		members, err = s.MembersOf(ctx, r2.ID)
		req.NoError(err)
		req.ElementsMatch([]domain.SessionID{"c"}, members)
	})

	t.Run("duplicate add is an error", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		room, err := s.CreateRoom(ctx, "R")
		req.NoError(err)

		req.NoError(s.Add(ctx, "a", room.ID))
		req.ErrorIs(s.Add(ctx, "a", room.ID), domain.ErrDuplicateSession)
	})

	t.Run("add to unknown room", func(t *testing.T) {
		err := newStore(t).Add(ctx, "a", "missing")
		require.ErrorIs(t, err, domain.ErrRoomNotFound)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		room, err := s.CreateRoom(ctx, "R")
		req.NoError(err)
		req.NoError(s.Add(ctx, "a", room.ID))

		req.NoError(s.Remove(ctx, "a"))
		req.NoError(s.Remove(ctx, "a"))
		req.NoError(s.Remove(ctx, "never-added"))

		members, err := s.MembersOf(ctx, room.ID)
		req.NoError(err)
		req.Empty(members)

		// the id is free again once its row is gone
		req.NoError(s.Add(ctx, "a", room.ID))
	})

	t.Run("purge drops memberships but keeps rooms", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		room, err := s.CreateRoom(ctx, "R")
		req.NoError(err)
		req.NoError(s.Add(ctx, "a", room.ID))
		req.NoError(s.Add(ctx, "b", room.ID))

		req.NoError(s.Purge(ctx))

		members, err := s.MembersOf(ctx, room.ID)
		req.NoError(err)
		req.Empty(members)
		ok, err := s.Exists(ctx, room.ID)
		req.NoError(err)
		req.True(ok)
	})

	t.Run("concurrent add and remove", func(t *testing.T) {
		req := require.New(t)
		s := newStore(t)
		room, err := s.CreateRoom(ctx, "R")
		req.NoError(err)

		const n = 50
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sid := domain.SessionID(fmt.Sprintf("s-%d", i))
				if err := s.Add(ctx, sid, room.ID); err != nil {
					t.Errorf("add %s: %v", sid, err)
					return
				}
				if i%2 == 0 {
					if err := s.Remove(ctx, sid); err != nil {
						t.Errorf("remove %s: %v", sid, err)
					}
				}
			}(i)
		}
		wg.Wait()

		members, err := s.MembersOf(ctx, room.ID)
		req.NoError(err)
		req.Len(members, n/2)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) core.Store {
		return NewMemory()
	})
}
