// Package sqlite provides a SQLite-backed core.SessionStore.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/scenemesh/core"
	"github.com/hupe1980/scenemesh/session/codec"
)

//go:embed schema.sql
var schema string

// Store persists session records in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Compile-time check that Store implements core.SessionStore.
var _ core.SessionStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens a SQLite session store and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get loads one record; a missing row is reported as (nil, nil).
func (s *Store) Get(ctx context.Context, userID string) (*core.Session, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		scene sql.NullString
		data  string
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT current_scene, data FROM scene_sessions WHERE user_id = ?`,
		userID,
	).Scan(&scene, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	decoded, err := codec.UnmarshalData([]byte(data))
	if err != nil {
		return nil, err
	}
	return &core.Session{CurrentScene: scene.String, Data: decoded}, nil
}

// Set upserts the record for userID.
func (s *Store) Set(ctx context.Context, userID string, sess *core.Session) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if sess == nil {
		sess = core.NewSession()
	}
	data, err := codec.MarshalData(sess.Data)
	if err != nil {
		return err
	}
	scene := sql.NullString{String: sess.CurrentScene, Valid: sess.CurrentScene != ""}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO scene_sessions (user_id, current_scene, data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   current_scene = excluded.current_scene,
		   data = excluded.data,
		   updated_at = excluded.updated_at`,
		userID, scene, string(data), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Delete removes the record; a missing row is not an error.
func (s *Store) Delete(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM scene_sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}
