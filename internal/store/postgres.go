package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/relay/internal/domain"
	"github.com/dkeye/relay/internal/store/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres keeps rooms and memberships in two tables joined by a foreign key.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres runs migrations and connects a pool.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if err := migrations.Up(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) CreateRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := domain.NewRoom(code)
	if err != nil {
		return nil, err
	}
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO rooms (id, code) VALUES ($1, $2)`,
		string(room.ID), string(room.Code),
	); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	log.Info().Str("module", "store.postgres").Str("room", string(room.ID)).Str("code", code).Msg("room created")
	return room, nil
}

func (p *Postgres) Exists(ctx context.Context, id domain.RoomID) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, string(id),
	).Scan(&ok)
	return ok, err
}

func (p *Postgres) Code(ctx context.Context, id domain.RoomID) (domain.RoomCode, error) {
	var code string
	err := p.pool.QueryRow(ctx, `SELECT code FROM rooms WHERE id = $1`, string(id)).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrRoomNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select room code: %w", err)
	}
	return domain.RoomCode(code), nil
}

func (p *Postgres) ListRooms(ctx context.Context, limit int) ([]domain.Room, error) {
	if limit <= 0 {
		return []domain.Room{}, nil
	}
	rows, err := p.pool.Query(ctx, `SELECT id, code FROM rooms ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	rooms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Room, error) {
		var id, code string
		err := row.Scan(&id, &code)
		return domain.Room{ID: domain.RoomID(id), Code: domain.RoomCode(code)}, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect rooms: %w", err)
	}
	return rooms, nil
}

func (p *Postgres) Add(ctx context.Context, sid domain.SessionID, room domain.RoomID) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO memberships (session_id, room_id) VALUES ($1, $2)`,
		string(sid), string(room),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.ErrDuplicateSession
		case pgForeignKeyViolation:
			return domain.ErrRoomNotFound
		}
	}
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (p *Postgres) MembersOf(ctx context.Context, room domain.RoomID) ([]domain.SessionID, error) {
	rows, err := p.pool.Query(ctx, `SELECT session_id FROM memberships WHERE room_id = $1`, string(room))
	if err != nil {
		return nil, fmt.Errorf("select members: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect members: %w", err)
	}
	out := make([]domain.SessionID, len(ids))
	for i, id := range ids {
		out[i] = domain.SessionID(id)
	}
	return out, nil
}

func (p *Postgres) Remove(ctx context.Context, sid domain.SessionID) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM memberships WHERE session_id = $1`, string(sid)); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func (p *Postgres) Purge(ctx context.Context) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM memberships`)
	if err != nil {
		return fmt.Errorf("purge memberships: %w", err)
	}
	log.Info().Str("module", "store.postgres").Int64("rows", tag.RowsAffected()).Msg("memberships purged")
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
