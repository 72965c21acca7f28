package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/recallstack/recall/internal/models"
)

// MessageStore handles Message CRUD on SQLite. Messages are append-only.
type MessageStore struct {
	db *DB
}

func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert stores a new message and returns it with its assigned id.
func (s *MessageStore) Insert(m *models.Message) error {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}
	res, err := s.db.Exec(`
		INSERT INTO messages (content, role, model_id, created_at)
		VALUES (?, ?, ?, ?)
	`, m.Content, string(m.Role), m.ModelID, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("message id: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID fetches a single message by id, or nil if not found.
func (s *MessageStore) GetByID(id int64) (*models.Message, error) {
	var m models.Message
	var role string
	err := s.db.QueryRow(`
		SELECT id, content, role, model_id, created_at
		FROM messages WHERE id = ?
	`, id).Scan(&m.ID, &m.Content, &role, &m.ModelID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	m.Role = models.Role(role)
	return &m, nil
}

// Recent returns the most recent messages in chronological order.
func (s *MessageStore) Recent(limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, content, role, model_id, created_at
		FROM messages ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.Content, &role, &m.ModelID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse so the window reads oldest to newest.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
