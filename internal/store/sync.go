package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recallstack/recall/internal/models"
)

// SyncStore manages the sync_state singleton and the sync_history log.
type SyncStore struct {
	db *DB
}

func NewSyncStore(db *DB) *SyncStore {
	return &SyncStore{db: db}
}

// GetState returns the sync state, seeding a disabled default on first access.
func (s *SyncStore) GetState() (*models.SyncState, error) {
	var st models.SyncState
	var enabled int
	err := s.db.QueryRow(`
		SELECT enabled, active_index_name, namespace, current_operation, last_sync_at
		FROM sync_state WHERE id = 1
	`).Scan(&enabled, &st.ActiveIndexName, &st.Namespace, &st.CurrentOperation, &st.LastSyncAt)
	if err == sql.ErrNoRows {
		st = models.SyncState{CurrentOperation: "none"}
		if err := s.PutState(&st); err != nil {
			return nil, err
		}
		return &st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync state: %w", err)
	}
	st.Enabled = enabled != 0
	return &st, nil
}

// PutState upserts the singleton sync state row.
func (s *SyncStore) PutState(st *models.SyncState) error {
	enabled := 0
	if st.Enabled {
		enabled = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO sync_state (id, enabled, active_index_name, namespace, current_operation, last_sync_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			enabled = excluded.enabled,
			active_index_name = excluded.active_index_name,
			namespace = excluded.namespace,
			current_operation = excluded.current_operation,
			last_sync_at = excluded.last_sync_at
	`, enabled, st.ActiveIndexName, st.Namespace, st.CurrentOperation, st.LastSyncAt)
	if err != nil {
		return fmt.Errorf("put sync state: %w", err)
	}
	return nil
}

// RecordResult appends a sync or hydrate outcome to the history log.
func (s *SyncStore) RecordResult(r *models.SyncResult) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_history (id, operation, index_name, namespace, count,
			duplicate_count, dedup_rate, total_processed, vector_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.New().String(), r.Operation, r.IndexName, r.Namespace, r.Count,
		r.DuplicateCount, r.DedupRate, r.TotalProcessed, r.VectorCount, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record sync result: %w", err)
	}
	return nil
}

// History returns the most recent sync runs, newest first.
func (s *SyncStore) History(limit int) ([]*models.SyncRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, operation, index_name, namespace, count, duplicate_count,
		       dedup_rate, total_processed, vector_count, created_at
		FROM sync_history ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sync history: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncRecord
	for rows.Next() {
		var r models.SyncRecord
		if err := rows.Scan(&r.ID, &r.Operation, &r.IndexName, &r.Namespace, &r.Count,
			&r.DuplicateCount, &r.DedupRate, &r.TotalProcessed, &r.VectorCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sync record: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
