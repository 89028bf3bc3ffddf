// Package storage persists conversations in a local SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"ailab/chat"
)

const activeConversationKey = "active_conversation"

// ConversationStore is the SQLite-backed implementation of chat.Store.
// Conversations and their messages live in separate tables so streaming
// updates can rewrite a single message row instead of the whole history.
type ConversationStore struct {
	db *sql.DB
}

// NewConversationStore opens (or creates) the conversation database under
// dataDir and ensures the schema exists.
func NewConversationStore(dataDir string) (*ConversationStore, error) {
	dbPath := filepath.Join(dataDir, "conversations.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &ConversationStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (cs *ConversationStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		model TEXT NOT NULL,
		system_prompt TEXT NOT NULL DEFAULT '',
		temperature REAL NOT NULL,
		top_p REAL NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		pending INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	_, err := cs.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (cs *ConversationStore) Close() error {
	return cs.db.Close()
}

// Save writes the full conversation, replacing any prior version. Message
// rows are rewritten wholesale; per-delta streaming goes through
// UpdateMessage instead.
func (cs *ConversationStore) Save(conv *chat.Conversation) error {
	tx, err := cs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO conversations
			(id, title, model, system_prompt, temperature, top_p, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.Model, conv.SystemPrompt,
		conv.Params.Temperature, conv.Params.TopP,
		conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for i, msg := range conv.Messages {
		_, err := tx.Exec(`
			INSERT INTO messages (id, conversation_id, seq, role, content, pending, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, i, string(msg.Role), msg.Content, msg.Pending, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load returns the conversation with the given ID, with its provider
// resolution recomputed from the stored model name.
func (cs *ConversationStore) Load(id string) (*chat.Conversation, error) {
	conv := &chat.Conversation{ID: id}

	err := cs.db.QueryRow(`
		SELECT title, model, system_prompt, temperature, top_p, created_at, updated_at
		FROM conversations WHERE id = ?`, id,
	).Scan(&conv.Title, &conv.Model, &conv.SystemPrompt,
		&conv.Params.Temperature, &conv.Params.TopP,
		&conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chat.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	rows, err := cs.db.Query(`
		SELECT id, role, content, pending, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg chat.Message
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Pending, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = chat.Role(role)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	// Unresolvable models stay loadable; dispatch rejects them later.
	conv.Spec, _ = chat.ResolveModel(conv.Model)

	return conv, nil
}

// List returns summaries for all conversations, newest first.
func (cs *ConversationStore) List() ([]chat.Summary, error) {
	rows, err := cs.db.Query(`
		SELECT c.id, c.title, c.model, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var summaries []chat.Summary
	for rows.Next() {
		var s chat.Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.Model, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a conversation and its messages. If the deleted
// conversation was active, the active pointer is cleared.
func (cs *ConversationStore) Delete(id string) error {
	tx, err := cs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrNotFound
	}

	_, err = tx.Exec(`DELETE FROM app_state WHERE key = ? AND value = ?`, activeConversationKey, id)
	if err != nil {
		return fmt.Errorf("failed to clear active pointer: %w", err)
	}

	return tx.Commit()
}

// UpdateMessage rewrites a single message row in place.
func (cs *ConversationStore) UpdateMessage(conversationID string, msg chat.Message) error {
	res, err := cs.db.Exec(`
		UPDATE messages SET content = ?, pending = ?
		WHERE id = ? AND conversation_id = ?`,
		msg.Content, msg.Pending, msg.ID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chat.ErrNotFound
	}
	return nil
}

// SetActive records which conversation the dashboard has open.
func (cs *ConversationStore) SetActive(id string) error {
	_, err := cs.db.Exec(`
		INSERT OR REPLACE INTO app_state (key, value) VALUES (?, ?)`,
		activeConversationKey, id)
	if err != nil {
		return fmt.Errorf("failed to set active conversation: %w", err)
	}
	return nil
}

// Active returns the recorded active conversation ID, or "" when none is set.
func (cs *ConversationStore) Active() (string, error) {
	var id string
	err := cs.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, activeConversationKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active conversation: %w", err)
	}
	return id, nil
}

var _ chat.Store = (*ConversationStore)(nil)
