// Copyright 2026 The VoiceCode Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/voicecode-project/voicecode/session"
)

// Store is the durable-storage surface: the session store's write-through
// collaborator plus key/value settings and credential storage.
type Store interface {
	session.Persistence

	Setting(key string) (value string, ok bool, err error)
	SetSetting(key, value string) error

	Credential(name string) (secret string, ok bool, err error)
	SetCredential(name, secret string) error
	DeleteCredential(name string) error

	Close() error
}

// Config holds the parameters for opening a SQLite store. Path is
// required; the parent directory must exist.
type Config struct {
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4.
	// SQLite serializes writes regardless, so the pool mostly buys
	// concurrent reads.
	PoolSize int

	// Logger receives operational messages. Defaults to a no-op logger.
	Logger *slog.Logger
}

// SQLite implements Store on a local database file.
type SQLite struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

var _ Store = (*SQLite)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	working_directory TEXT NOT NULL DEFAULT '',
	last_modified     TEXT NOT NULL DEFAULT '',
	message_count     INTEGER NOT NULL DEFAULT 0,
	preview           TEXT NOT NULL DEFAULT '',
	queue_position    INTEGER NOT NULL DEFAULT 0,
	queue_priority    INTEGER NOT NULL DEFAULT 0,
	priority_order    REAL NOT NULL DEFAULT 0,
	queued_at         TEXT NOT NULL DEFAULT '',
	deleted           INTEGER NOT NULL DEFAULT 0,
	local_name        INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	id             TEXT PRIMARY KEY,
	correlation_id TEXT NOT NULL DEFAULT '',
	session_id     TEXT NOT NULL,
	role           TEXT NOT NULL,
	text           TEXT NOT NULL,
	timestamp      TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS messages_by_session
	ON messages (session_id, timestamp);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
	name   TEXT PRIMARY KEY,
	secret TEXT NOT NULL
);
`

// Open creates the database file if needed, applies the standard
// pragmas to every pooled connection, and ensures the schema exists.
func Open(cfg Config) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("persist: Path is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("persist: opening %s: %w", cfg.Path, err)
	}

	s := &SQLite{pool: pool, logger: logger, path: cfg.Path}

	conn, err := pool.Take(context.Background())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: take: %w", err)
	}
	err = sqlitex.ExecuteScript(conn, schema, nil)
	pool.Put(conn)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("persist: creating schema: %w", err)
	}

	logger.Info("database opened", "path", cfg.Path, "pool_size", poolSize)
	return s, nil
}

// prepareConnection applies the standard pragmas. WAL gives concurrent
// readers with a single writer; busy_timeout covers writer contention
// between pooled connections.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("persist: %s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the pool. Blocks until borrowed connections return.
func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("persist: closing %s: %w", s.path, err)
	}
	return nil
}

// SaveSession inserts or fully replaces a session row.
func (s *SQLite) SaveSession(record session.Session) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO sessions (
			id, name, working_directory, last_modified, message_count,
			preview, queue_position, queue_priority, priority_order,
			queued_at, deleted, local_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			working_directory = excluded.working_directory,
			last_modified = excluded.last_modified,
			message_count = excluded.message_count,
			preview = excluded.preview,
			queue_position = excluded.queue_position,
			queue_priority = excluded.queue_priority,
			priority_order = excluded.priority_order,
			queued_at = excluded.queued_at,
			deleted = excluded.deleted,
			local_name = excluded.local_name`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.ID,
				record.Name,
				record.WorkingDirectory,
				encodeTime(record.LastModified),
				record.MessageCount,
				record.Preview,
				record.QueuePosition,
				record.QueuePriority,
				record.PriorityOrder,
				encodeTime(record.QueuedAt),
				boolInt(record.Deleted),
				boolInt(record.LocalName),
			},
		})
	if err != nil {
		return fmt.Errorf("persist: saving session %s: %w", record.ID, err)
	}
	return nil
}

// LoadSessions returns every stored session, soft-deleted ones
// included. The in-memory store decides what to show.
func (s *SQLite) LoadSessions() ([]session.Session, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	var sessions []session.Session
	err = sqlitex.Execute(conn, `
		SELECT id, name, working_directory, last_modified, message_count,
			preview, queue_position, queue_priority, priority_order,
			queued_at, deleted, local_name
		FROM sessions
		ORDER BY last_modified DESC, id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				sessions = append(sessions, session.Session{
					ID:               stmt.ColumnText(0),
					Name:             stmt.ColumnText(1),
					WorkingDirectory: stmt.ColumnText(2),
					LastModified:     decodeTime(stmt.ColumnText(3)),
					MessageCount:     stmt.ColumnInt(4),
					Preview:          stmt.ColumnText(5),
					QueuePosition:    stmt.ColumnInt(6),
					QueuePriority:    stmt.ColumnInt(7),
					PriorityOrder:    stmt.ColumnFloat(8),
					QueuedAt:         decodeTime(stmt.ColumnText(9)),
					Deleted:          stmt.ColumnInt(10) != 0,
					LocalName:        stmt.ColumnInt(11) != 0,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("persist: loading sessions: %w", err)
	}
	return sessions, nil
}

// SaveMessage inserts or replaces a message row. When the message
// carries a correlation ID, any earlier row with the same correlation
// ID but a different message ID is removed first: confirmation replaces
// the optimistic entry's client ID with the server's, and without the
// cleanup the superseded row would linger as a duplicate.
func (s *SQLite) SaveMessage(record session.Message) (err error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)

	if record.CorrelationID != "" {
		err = sqlitex.Execute(conn,
			"DELETE FROM messages WHERE correlation_id = ? AND id <> ?",
			&sqlitex.ExecOptions{Args: []any{record.CorrelationID, record.ID}})
		if err != nil {
			return fmt.Errorf("persist: clearing superseded message: %w", err)
		}
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO messages (
			id, correlation_id, session_id, role, text, timestamp,
			status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			correlation_id = excluded.correlation_id,
			session_id = excluded.session_id,
			role = excluded.role,
			text = excluded.text,
			timestamp = excluded.timestamp,
			status = excluded.status,
			error = excluded.error`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.ID,
				record.CorrelationID,
				record.SessionID,
				string(record.Role),
				record.Text,
				encodeTime(record.Timestamp),
				string(record.Status),
				record.Error,
			},
		})
	if err != nil {
		return fmt.Errorf("persist: saving message %s: %w", record.ID, err)
	}
	return nil
}

// LoadMessages returns a session's transcript in chronological order.
func (s *SQLite) LoadMessages(sessionID string) ([]session.Message, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return nil, fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	var messages []session.Message
	err = sqlitex.Execute(conn, `
		SELECT id, correlation_id, role, text, timestamp, status, error
		FROM messages
		WHERE session_id = ?
		ORDER BY timestamp, rowid`,
		&sqlitex.ExecOptions{
			Args: []any{sessionID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				messages = append(messages, session.Message{
					ID:            stmt.ColumnText(0),
					CorrelationID: stmt.ColumnText(1),
					SessionID:     sessionID,
					Role:          session.Role(stmt.ColumnText(2)),
					Text:          stmt.ColumnText(3),
					Timestamp:     decodeTime(stmt.ColumnText(4)),
					Status:        session.Status(stmt.ColumnText(5)),
					Error:         stmt.ColumnText(6),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("persist: loading messages for %s: %w", sessionID, err)
	}
	return messages, nil
}

// Setting reads one settings value. ok is false when the key is absent.
func (s *SQLite) Setting(key string) (string, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return "", false, fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	var value string
	var found bool
	err = sqlitex.Execute(conn, "SELECT value FROM settings WHERE key = ?",
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("persist: reading setting %s: %w", key, err)
	}
	return value, found, nil
}

// SetSetting writes one settings value.
func (s *SQLite) SetSetting(key, value string) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		&sqlitex.ExecOptions{Args: []any{key, value}})
	if err != nil {
		return fmt.Errorf("persist: writing setting %s: %w", key, err)
	}
	return nil
}

// Credential reads one stored secret. ok is false when absent.
func (s *SQLite) Credential(name string) (string, bool, error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return "", false, fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	var secret string
	var found bool
	err = sqlitex.Execute(conn, "SELECT secret FROM credentials WHERE name = ?",
		&sqlitex.ExecOptions{
			Args: []any{name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				secret = stmt.ColumnText(0)
				found = true
				return nil
			},
		})
	if err != nil {
		return "", false, fmt.Errorf("persist: reading credential %s: %w", name, err)
	}
	return secret, found, nil
}

// SetCredential writes one secret.
func (s *SQLite) SetCredential(name, secret string) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO credentials (name, secret) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET secret = excluded.secret`,
		&sqlitex.ExecOptions{Args: []any{name, secret}})
	if err != nil {
		return fmt.Errorf("persist: writing credential %s: %w", name, err)
	}
	return nil
}

// DeleteCredential removes one secret. Deleting an absent credential is
// not an error.
func (s *SQLite) DeleteCredential(name string) error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("persist: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM credentials WHERE name = ?",
		&sqlitex.ExecOptions{Args: []any{name}})
	if err != nil {
		return fmt.Errorf("persist: deleting credential %s: %w", name, err)
	}
	return nil
}

// encodeTime renders a timestamp as sortable RFC 3339 text. The zero
// time becomes the empty string so it sorts before everything and round
// trips back to zero.
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
