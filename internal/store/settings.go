package store

import (
	"database/sql"
	"fmt"

	"github.com/recallstack/recall/internal/models"
)

// SettingsStore manages the singleton settings row.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the settings row, seeding defaults on first access.
func (s *SettingsStore) Get() (*models.Settings, error) {
	var st models.Settings
	err := s.db.QueryRow(`
		SELECT context_size, similarity_threshold, question_threshold_factor,
		       statement_threshold_factor, default_model_id, default_embedding_model_id
		FROM settings WHERE id = 1
	`).Scan(
		&st.ContextSize, &st.SimilarityThreshold, &st.QuestionThresholdFactor,
		&st.StatementThresholdFactor, &st.DefaultModelID, &st.DefaultEmbeddingModelID,
	)
	if err == sql.ErrNoRows {
		defaults := models.DefaultSettings()
		if err := s.Put(defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &st, nil
}

// Put upserts the singleton settings row.
func (s *SettingsStore) Put(st *models.Settings) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (id, context_size, similarity_threshold, question_threshold_factor,
			statement_threshold_factor, default_model_id, default_embedding_model_id)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			context_size = excluded.context_size,
			similarity_threshold = excluded.similarity_threshold,
			question_threshold_factor = excluded.question_threshold_factor,
			statement_threshold_factor = excluded.statement_threshold_factor,
			default_model_id = excluded.default_model_id,
			default_embedding_model_id = excluded.default_embedding_model_id
	`,
		st.ContextSize, st.SimilarityThreshold, st.QuestionThresholdFactor,
		st.StatementThresholdFactor, st.DefaultModelID, st.DefaultEmbeddingModelID,
	)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}
