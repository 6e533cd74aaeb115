// Package postgres provides a Postgres-backed progress store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/progress-service/internal/progress"
)

const (
	selectQuery = `
		SELECT trauma, "upper", "lower", created_at, updated_at
		FROM progress
		WHERE id = $1;
	`
	insertQuery = `
		INSERT INTO progress (id, trauma, "upper", "lower", created_at)
		VALUES ($1, 0, 0, 0, now())
		ON CONFLICT (id) DO NOTHING;
	`
	resetQuery = `
		UPDATE progress
		SET trauma = 0, "upper" = 0, "lower" = 0, updated_at = now()
		WHERE id = $1
		RETURNING trauma, "upper", "lower", created_at, updated_at;
	`
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// ProgressStore implements progress.Store on a single row of the progress table.
type ProgressStore struct {
	pool pgxPool
	raw  *pgxpool.Pool
}

// NewProgressStore connects a pool using cfg.
func NewProgressStore(ctx context.Context, cfg Config) (*ProgressStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ProgressStore{pool: pool, raw: pool}, nil
}

// NewProgressStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewProgressStoreWithPool(pool pgxPool) (*ProgressStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ProgressStore{pool: pool}, nil
}

// Pool exposes the underlying pgxpool for migrations. It is nil for stores
// built with NewProgressStoreWithPool.
func (s *ProgressStore) Pool() *pgxpool.Pool {
	return s.raw
}

// GetOrCreate reads the row and inserts it when missing. ON CONFLICT makes a
// concurrent first read harmless.
func (s *ProgressStore) GetOrCreate(ctx context.Context) (progress.Document, error) {
	doc, err := s.read(ctx)
	if err == nil || !errors.Is(err, progress.ErrNotFound) {
		return doc, err
	}
	if _, err := s.pool.Exec(ctx, insertQuery, progress.DocumentID); err != nil {
		return progress.Document{}, fmt.Errorf("failed to create progress row: %w", err)
	}
	return s.read(ctx)
}

// Increment applies delta with a single UPDATE so concurrent increments
// serialize on the row lock.
func (s *ProgressStore) Increment(
	ctx context.Context,
	category progress.Category,
	delta float64,
) (progress.Document, error) {
	if _, err := progress.ParseCategory(string(category)); err != nil {
		return progress.Document{}, err
	}
	column := pgx.Identifier{string(category)}.Sanitize()
	query := fmt.Sprintf(`
		UPDATE progress
		SET %[1]s = %[1]s + $1
		WHERE id = $2
		RETURNING trauma, "upper", "lower", created_at, updated_at;
	`, column)
	doc, err := scanDocument(s.pool.QueryRow(ctx, query, delta, progress.DocumentID))
	if err != nil {
		return progress.Document{}, fmt.Errorf("failed to increment %s: %w", category, err)
	}
	return doc, nil
}

// Reset zeroes every counter and stamps updated_at.
func (s *ProgressStore) Reset(ctx context.Context) (progress.Document, error) {
	doc, err := scanDocument(s.pool.QueryRow(ctx, resetQuery, progress.DocumentID))
	if err != nil {
		return progress.Document{}, fmt.Errorf("failed to reset progress: %w", err)
	}
	return doc, nil
}

// Ping checks connectivity.
func (s *ProgressStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *ProgressStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *ProgressStore) read(ctx context.Context) (progress.Document, error) {
	doc, err := scanDocument(s.pool.QueryRow(ctx, selectQuery, progress.DocumentID))
	if err != nil {
		return progress.Document{}, fmt.Errorf("failed to get progress: %w", err)
	}
	return doc, nil
}

func scanDocument(row pgx.Row) (progress.Document, error) {
	var (
		doc       progress.Document
		createdAt time.Time
		updatedAt *time.Time
	)
	err := row.Scan(&doc.Trauma, &doc.Upper, &doc.Lower, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return progress.Document{}, progress.ErrNotFound
		}
		return progress.Document{}, err
	}
	createdAt = createdAt.UTC()
	doc.CreatedAt = &createdAt
	if updatedAt != nil {
		u := updatedAt.UTC()
		doc.UpdatedAt = &u
	}
	return doc, nil
}
