// Package store handles SQL persistence of the telemetry tables.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/verte-zerg/typedash/internal/model"

	_ "github.com/lib/pq"   // Postgres driver.
	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Store wraps SQL access for the scores, misses and users tables.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite does not support concurrent writers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// OpenPostgres returns a handle to an existing Postgres database without
// dialing it; connection errors surface on the first query. The schema is
// owned by the system producing the telemetry, so no migrations are applied.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// ConnectPostgres is OpenPostgres followed by a ping.
func ConnectPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS m_user (
			user_id INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			is_newgraduate INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS t_score (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			diff_id INTEGER NOT NULL,
			lang_id INTEGER NOT NULL,
			score REAL NOT NULL,
			accuracy REAL NOT NULL,
			typing_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS t_miss (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			miss_char TEXT NOT NULL,
			miss_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_t_score_user ON t_score(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_t_miss_user ON t_miss(user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type attemptRow struct {
	UserID      int64   `db:"user_id"`
	DiffID      int     `db:"diff_id"`
	LangID      int     `db:"lang_id"`
	Score       float64 `db:"score"`
	Accuracy    float64 `db:"accuracy"`
	TypingCount int     `db:"typing_count"`
	CreatedAt   string  `db:"created_at"`
}

type missRow struct {
	UserID    int64  `db:"user_id"`
	MissChar  string `db:"miss_char"`
	MissCount int    `db:"miss_count"`
	CreatedAt string `db:"created_at"`
}

type userRow struct {
	UserID        int64  `db:"user_id"`
	Username      string `db:"username"`
	IsNewGraduate bool   `db:"is_newgraduate"`
	CreatedAt     string `db:"created_at"`
}

// ListAttempts returns every row of the scores table ordered by creation time.
// Only the documented data columns are referenced.
func (s *Store) ListAttempts(ctx context.Context) ([]model.Attempt, error) {
	var rows []attemptRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT user_id, diff_id, lang_id, score, accuracy, typing_count, created_at
		 FROM t_score ORDER BY created_at ASC, user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	out := make([]model.Attempt, 0, len(rows))
	for _, r := range rows {
		created, err := model.ParseTimestamp(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("t_score user %d: %w", r.UserID, err)
		}
		out = append(out, model.Attempt{
			UserID:      r.UserID,
			Difficulty:  model.Difficulty(r.DiffID),
			Language:    model.Language(r.LangID),
			Score:       r.Score,
			Accuracy:    r.Accuracy,
			TypingCount: r.TypingCount,
			CreatedAt:   created,
		})
	}
	return out, nil
}

// ListMisses returns every row of the miss-character table ordered by creation time.
func (s *Store) ListMisses(ctx context.Context) ([]model.MissEvent, error) {
	var rows []missRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT user_id, miss_char, miss_count, created_at FROM t_miss ORDER BY created_at ASC, user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list misses: %w", err)
	}
	out := make([]model.MissEvent, 0, len(rows))
	for _, r := range rows {
		created, err := model.ParseTimestamp(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("t_miss user %d: %w", r.UserID, err)
		}
		out = append(out, model.MissEvent{
			UserID:    r.UserID,
			Char:      r.MissChar,
			Count:     r.MissCount,
			CreatedAt: created,
		})
	}
	return out, nil
}

// ListUsers returns the roster ordered by user id.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT user_id, username, is_newgraduate, created_at FROM m_user ORDER BY user_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]model.User, 0, len(rows))
	for _, r := range rows {
		created, err := model.ParseTimestamp(r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("m_user %d: %w", r.UserID, err)
		}
		out = append(out, model.User{
			UserID:        r.UserID,
			Username:      r.Username,
			IsNewGraduate: r.IsNewGraduate,
			CreatedAt:     created,
		})
	}
	return out, nil
}

// ReplaceTables swaps the contents of all three tables in one transaction.
func (s *Store) ReplaceTables(ctx context.Context, raw model.RawTables) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, table := range []string{"t_score", "t_miss", "m_user"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err = insertUsers(ctx, tx, raw.Users); err != nil {
		return err
	}
	if err = insertAttempts(ctx, tx, raw.Attempts); err != nil {
		return err
	}
	if err = insertMisses(ctx, tx, raw.Misses); err != nil {
		return err
	}
	return tx.Commit()
}

func insertUsers(ctx context.Context, tx *sqlx.Tx, users []model.User) error {
	if len(users) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO m_user (user_id, username, is_newgraduate, created_at) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, u := range users {
		if _, err := stmt.ExecContext(ctx, u.UserID, u.Username, u.IsNewGraduate, formatTime(u.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.UserID, err)
		}
	}
	return nil
}

func insertAttempts(ctx context.Context, tx *sqlx.Tx, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO t_score (user_id, diff_id, lang_id, score, accuracy, typing_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, a := range attempts {
		if _, err := stmt.ExecContext(ctx,
			a.UserID,
			int(a.Difficulty),
			int(a.Language),
			a.Score,
			a.Accuracy,
			a.TypingCount,
			formatTime(a.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}
	}
	return nil
}

func insertMisses(ctx context.Context, tx *sqlx.Tx, misses []model.MissEvent) error {
	if len(misses) == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, tx.Rebind(
		`INSERT INTO t_miss (user_id, miss_char, miss_count, created_at) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, m := range misses {
		if _, err := stmt.ExecContext(ctx, m.UserID, m.Char, m.Count, formatTime(m.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert miss event: %w", err)
		}
	}
	return nil
}
