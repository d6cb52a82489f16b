package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SessionInfo is a summary row describing an archived session.
type SessionInfo struct {
	ID           string
	Model        string
	Title        string
	CreatedAt    time.Time
	MessageCount int
}

// Store archives session dumps for later retrieval. Credentials are never
// stored; a loaded session must be re-keyed via SessionConfig.
type Store interface {
	Save(dump *SessionDump) error
	Load(id string) (*SessionDump, error)
	List() ([]SessionInfo, error)
	Delete(id string) error
	Close() error
}

// SQLiteStore persists sessions in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenStore opens (or creates) a session archive at the given path.
func OpenStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive ping failed: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	model TEXT NOT NULL,
	system TEXT NOT NULL,
	title TEXT,
	params TEXT,
	recent_messages INTEGER NOT NULL DEFAULT 0,
	total_prompt_length INTEGER NOT NULL DEFAULT 0,
	total_completion_length INTEGER NOT NULL DEFAULT 0,
	total_length INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	idx INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	name TEXT,
	function_call TEXT,
	received_at TEXT NOT NULL,
	finish_reason TEXT,
	prompt_length INTEGER NOT NULL DEFAULT 0,
	completion_length INTEGER NOT NULL DEFAULT 0,
	total_length INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (session_id, idx)
);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Save upserts a session dump and replaces its message rows.
func (s *SQLiteStore) Save(dump *SessionDump) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	params := ""
	if len(dump.Params) > 0 {
		data, err := json.Marshal(dump.Params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		params = string(data)
	}

	_, err = tx.Exec(`INSERT INTO sessions
		(id, created_at, model, system, title, params, recent_messages,
		 total_prompt_length, total_completion_length, total_length)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		 model=excluded.model, system=excluded.system, title=excluded.title,
		 params=excluded.params, recent_messages=excluded.recent_messages,
		 total_prompt_length=excluded.total_prompt_length,
		 total_completion_length=excluded.total_completion_length,
		 total_length=excluded.total_length`,
		dump.ID, dump.CreatedAt.UTC().Format(time.RFC3339Nano), dump.Model,
		dump.System, dump.Title, params, dump.RecentMessages,
		dump.TotalPromptLength, dump.TotalCompletionLength, dump.TotalLength)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, dump.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	for i, msg := range dump.Messages {
		fc := ""
		if len(msg.FunctionCall) > 0 {
			fc = string(msg.FunctionCall)
		}
		_, err := tx.Exec(`INSERT INTO messages
			(session_id, idx, role, content, name, function_call, received_at,
			 finish_reason, prompt_length, completion_length, total_length)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			dump.ID, i, string(msg.Role), msg.Content, msg.Name, fc,
			msg.ReceivedAt.UTC().Format(time.RFC3339Nano), msg.FinishReason,
			msg.PromptLength, msg.CompletionLength, msg.TotalLength)
		if err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Load retrieves an archived session dump by ID.
func (s *SQLiteStore) Load(id string) (*SessionDump, error) {
	dump := &SessionDump{ID: id}
	var createdAt, params string
	err := s.db.QueryRow(`SELECT created_at, model, system, title, params,
		recent_messages, total_prompt_length, total_completion_length, total_length
		FROM sessions WHERE id = ?`, id).Scan(
		&createdAt, &dump.Model, &dump.System, &dump.Title, &params,
		&dump.RecentMessages, &dump.TotalPromptLength,
		&dump.TotalCompletionLength, &dump.TotalLength)
	if err == sql.ErrNoRows {
		return nil, &UnknownSessionError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	dump.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session timestamp: %w", err)
	}
	if params != "" {
		if err := json.Unmarshal([]byte(params), &dump.Params); err != nil {
			return nil, fmt.Errorf("failed to decode params: %w", err)
		}
	}

	rows, err := s.db.Query(`SELECT role, content, name, function_call,
		received_at, finish_reason, prompt_length, completion_length, total_length
		FROM messages WHERE session_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		var role, fc, receivedAt string
		if err := rows.Scan(&role, &msg.Content, &msg.Name, &fc, &receivedAt,
			&msg.FinishReason, &msg.PromptLength, &msg.CompletionLength,
			&msg.TotalLength); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = Role(role)
		if fc != "" {
			msg.FunctionCall = json.RawMessage(fc)
		}
		msg.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message timestamp: %w", err)
		}
		dump.Messages = append(dump.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return dump, nil
}

// List returns summaries for all archived sessions, newest first.
func (s *SQLiteStore) List() ([]SessionInfo, error) {
	rows, err := s.db.Query(`SELECT s.id, s.model, s.title, s.created_at,
		COUNT(m.session_id)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Model, &info.Title, &createdAt,
			&info.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse session timestamp: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return infos, nil
}

// Delete removes an archived session and its messages.
func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &UnknownSessionError{ID: id}
	}
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
