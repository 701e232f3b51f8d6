// Package db persists sessions and their conversation logs in SQLite.
// Message content is stored as the same block JSON the wire codec uses,
// so a resumed session replays exactly, thinking signatures included.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/droverhq/drover/internal/agent/conv"
	"github.com/droverhq/drover/internal/db/migrations"
	"github.com/droverhq/drover/internal/logging"
)

// Session is one named conversation.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, applies
// migrations, and returns a Store. SQLite handles one writer, so the
// pool is pinned to a single connection.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrations.Run(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logging.Infof("db: opened %s", path)
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateSession returns the session with the given name, creating
// it if it does not exist.
func (s *Store) GetOrCreateSession(name string) (*Session, error) {
	sess, err := s.getSessionByName(name)
	if err == nil {
		return sess, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", name, err)
	}
	return &Session{
		ID:        id,
		Name:      name,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

func (s *Store) getSessionByName(name string) (*Session, error) {
	var sess Session
	var created, updated int64
	err := s.db.QueryRow(
		`SELECT id, name, created_at, updated_at FROM sessions WHERE name = ?`, name,
	).Scan(&sess.ID, &sess.Name, &created, &updated)
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.UpdatedAt = time.Unix(updated, 0)
	return &sess, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, name, created_at, updated_at FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.Name, &created, &updated); err != nil {
			return nil, err
		}
		sess.CreatedAt = time.Unix(created, 0)
		sess.UpdatedAt = time.Unix(updated, 0)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// AppendMessage stores one message at the end of a session's log.
func (s *Store) AppendMessage(sessionID string, msg conv.Message) error {
	content, err := conv.MarshalContent(msg.Content)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)`,
		sessionID, string(msg.Role), string(content),
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return s.touchSession(sessionID)
}

// Messages returns a session's full log in insertion order.
func (s *Store) Messages(sessionID string) ([]conv.Message, error) {
	rows, err := s.db.Query(
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var log []conv.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		blocks, err := conv.UnmarshalContent([]byte(content))
		if err != nil {
			logging.Warnf("db: skipping undecodable message in session %s: %v", sessionID, err)
			continue
		}
		log = append(log, conv.Message{Role: conv.Role(role), Content: blocks})
	}
	return log, rows.Err()
}

// ReplaceMessages atomically swaps a session's log for a new one, used
// after window maintenance rewrites the in-memory log.
func (s *Store) ReplaceMessages(sessionID string, log []conv.Message) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	for _, msg := range log {
		content, err := conv.MarshalContent(msg.Content)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (session_id, role, content) VALUES (?, ?, ?)`,
			sessionID, string(msg.Role), string(content),
		); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	if _, err := tx.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().Unix(), sessionID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ResetSession deletes a session's messages but keeps the session row.
func (s *Store) ResetSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return err
	}
	return s.touchSession(sessionID)
}

// DeleteSession removes a session and, via the cascade, its messages.
func (s *Store) DeleteSession(sessionID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

func (s *Store) touchSession(sessionID string) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().Unix(), sessionID)
	return err
}
