//go:build sqlite
// +build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "findemybot/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveSession(ctx context.Context, sess Session) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session(id, token, name, email, saved_at) VALUES(1,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET token=excluded.token, name=excluded.name,
		   email=excluded.email, saved_at=excluded.saved_at`,
		sess.Token, sess.Name, sess.Email, sess.SavedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) LoadSession(ctx context.Context) (Session, bool, error) {
	if s == nil || s.db == nil {
		return Session{}, false, ErrDisabled
	}
	var sess Session
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT token, name, email, saved_at FROM session WHERE id = 1`).
		Scan(&sess.Token, &sess.Name, &sess.Email, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	if sess.Token == "" {
		return Session{}, false, nil
	}
	sess.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
	return sess, true, nil
}

func (s *sqliteStore) ClearSession(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`)
	return err
}

func (s *sqliteStore) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries(id, slot, chat_id, text, edited, at) VALUES(?,?,?,?,?,?)`,
		e.ID, e.Slot, e.ChatID, e.Text, boolInt(e.Edited), e.At.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryEntry, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slot, chat_id, text, edited, at FROM deliveries ORDER BY at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryEntry
	for rows.Next() {
		var e DeliveryEntry
		var edited int
		var at string
		if err := rows.Scan(&e.ID, &e.Slot, &e.ChatID, &e.Text, &edited, &at); err != nil {
			return nil, err
		}
		e.Edited = edited != 0
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	// Oldest first, matching the file driver.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
