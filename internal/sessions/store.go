// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id             TEXT PRIMARY KEY,
	handle         TEXT NOT NULL DEFAULT '',
	exchanges      INTEGER NOT NULL DEFAULT 0,
	exchange_limit INTEGER NOT NULL,
	sent           INTEGER NOT NULL DEFAULT 0,
	updated_at     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	files           TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (conversation_id, seq)
);
`

// Store persists conversations in a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure session store: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored conversation for id, or a new empty one with the
// given exchange limit when none exists.
func (s *Store) Load(ctx context.Context, id string, limit int) (*Conversation, error) {
	conv, err := s.Get(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return NewConversation(id, limit), nil
	}
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		conv.Limit = limit
	}
	return conv, nil
}

// Get returns the stored conversation for id.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	conv := &Conversation{ID: id}
	var updated int64
	err := withRetry(func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT handle, exchanges, exchange_limit, sent, updated_at FROM conversations WHERE id = ?`, id,
		).Scan(&conv.Handle, &conv.Exchanges, &conv.Limit, &conv.Sent, &updated)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", id, err)
	}
	conv.UpdatedAt = time.Unix(updated, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, files FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg   Message
			role  string
			files string
		)
		if err := rows.Scan(&role, &msg.Content, &files); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = Role(role)
		if err := json.Unmarshal([]byte(files), &msg.Files); err != nil {
			return nil, fmt.Errorf("decode file refs: %w", err)
		}
		if len(msg.Files) == 0 {
			msg.Files = nil
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if conv.Sent > len(conv.Messages) {
		conv.Sent = len(conv.Messages)
	}
	return conv, nil
}

// Save writes conv, replacing any previously stored state for its ID.
func (s *Store) Save(ctx context.Context, conv *Conversation) error {
	return withRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, handle, exchanges, exchange_limit, sent, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				handle = excluded.handle,
				exchanges = excluded.exchanges,
				exchange_limit = excluded.exchange_limit,
				sent = excluded.sent,
				updated_at = excluded.updated_at`,
			conv.ID, conv.Handle, conv.Exchanges, conv.Limit, conv.Sent, conv.UpdatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("save conversation %s: %w", conv.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
			return fmt.Errorf("clear messages %s: %w", conv.ID, err)
		}
		for i, msg := range conv.Messages {
			files := []byte("[]")
			if len(msg.Files) > 0 {
				if files, err = json.Marshal(msg.Files); err != nil {
					return fmt.Errorf("encode file refs: %w", err)
				}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO messages (conversation_id, seq, role, content, files) VALUES (?, ?, ?, ?, ?)`,
				conv.ID, i, string(msg.Role), msg.Content, string(files),
			); err != nil {
				return fmt.Errorf("save message %d: %w", i, err)
			}
		}
		return tx.Commit()
	})
}

// Delete removes the conversation for id. Deleting a missing conversation is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return withRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Prune removes conversations not updated since before and returns how many
// were dropped. Shells that died without running their cleanup leave these
// behind.
func (s *Store) Prune(ctx context.Context, before time.Time) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("list stale conversations: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("prune %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func withRetry(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isBusyError(err) {
			return err
		}
		time.Sleep(time.Duration((i+1)*75) * time.Millisecond)
	}
	return err
}

func isBusyError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
