package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/search"
)

// memoryColumns is the canonical column list for all SELECT queries.
// Order must match scanOne/scanMany.
const memoryColumns = `id, content, embedding, memory_type, message_id, content_hash, metadata, created_at`

// fallbackSampleFactor sizes the recent-memory sample used by the keyword
// fallback relative to the requested limit.
const fallbackSampleFactor = 5

const fallbackSampleCap = 200

// keywordFallbackScale keeps keyword fallback scores comparable to vector
// similarities.
const keywordFallbackScale = 0.9

// MemoryStore handles Memory CRUD and similarity queries on SQLite.
type MemoryStore struct {
	db     *DB
	logger *slog.Logger
}

func NewMemoryStore(db *DB, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{db: db, logger: logger}
}

// Insert stores a new memory and returns it with its assigned id. The caller
// must set ContentHash.
func (s *MemoryStore) Insert(m *models.Memory) error {
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().Unix()
	}

	var metadataJSON *string
	if len(m.Metadata) > 0 {
		data, _ := json.Marshal(m.Metadata)
		str := string(data)
		metadataJSON = &str
	}

	res, err := s.db.Exec(`
		INSERT INTO memories (content, embedding, memory_type, message_id, content_hash, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		m.Content, search.EncodeEmbedding(m.Embedding), string(m.Type),
		m.MessageID, m.ContentHash, metadataJSON, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("memory id: %w", err)
	}
	m.ID = id
	return nil
}

// GetByID fetches a single memory by id, or nil if not found.
func (s *MemoryStore) GetByID(id int64) (*models.Memory, error) {
	m, err := s.scanOne(s.db.QueryRow(
		fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// List returns a page of memories ordered by recency, plus the total count.
func (s *MemoryStore) List(page, limit int) ([]*models.Memory, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	total, err := s.db.MemoryCount()
	if err != nil {
		return nil, 0, fmt.Errorf("count memories: %w", err)
	}

	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, memoryColumns),
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	memories, err := s.scanMany(rows)
	if err != nil {
		return nil, 0, err
	}
	return memories, total, nil
}

// ClearAll deletes every memory and returns the number removed.
func (s *MemoryStore) ClearAll() (int, error) {
	res, err := s.db.Exec(`DELETE FROM memories`)
	if err != nil {
		return 0, fmt.Errorf("clear memories: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Recent returns the most recent memories, newest first.
func (s *MemoryStore) Recent(limit int) ([]*models.Memory, error) {
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories ORDER BY created_at DESC, id DESC LIMIT ?`, memoryColumns),
		limit)
	if err != nil {
		return nil, fmt.Errorf("recent memories: %w", err)
	}
	defer rows.Close()
	return s.scanMany(rows)
}

// ExistsByContentHash reports whether any memory carries the given hash.
func (s *MemoryStore) ExistsByContentHash(hash string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memories WHERE content_hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	return n > 0, nil
}

// ContentHashSet returns the set of all stored content hashes. Built once
// per hydrate run so in-batch duplicates are caught too.
func (s *MemoryStore) ContentHashSet() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT content_hash FROM memories`)
	if err != nil {
		return nil, fmt.Errorf("load content hashes: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan content hash: %w", err)
		}
		set[h] = true
	}
	return set, rows.Err()
}

// QueryByEmbedding finds the memories most similar to the query vector.
// The primary path is brute-force cosine over stored embeddings filtered by
// threshold. When that fails it degrades to keyword scoring over a recent
// sample, and finally to pure recency with synthetic similarities. All
// internal errors are logged, never returned; the worst case is an empty
// result.
func (s *MemoryStore) QueryByEmbedding(vec []float32, limit int, threshold float64, excludeID int64) []models.RetrievedMemory {
	if limit <= 0 {
		limit = 10
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}

	results, err := s.vectorQuery(vec, limit, threshold, excludeID)
	if err == nil {
		if len(results) < limit {
			results = s.keywordSupplement(results, vec, limit, threshold, excludeID)
		}
		return results
	}
	s.logger.Warn("vector query failed, using keyword fallback", "error", err)

	results, err = s.keywordFallback(limit, threshold, excludeID)
	if err == nil {
		return results
	}
	s.logger.Warn("keyword fallback failed, using recency fallback", "error", err)

	results, err = s.recencyFallback(limit, excludeID)
	if err != nil {
		s.logger.Error("recency fallback failed", "error", err)
		return nil
	}
	return results
}

// vectorQuery is the primary similarity path: cosine over every stored
// embedding.
func (s *MemoryStore) vectorQuery(vec []float32, limit int, threshold float64, excludeID int64) ([]models.RetrievedMemory, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories WHERE embedding IS NOT NULL AND embedding != ''`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	defer rows.Close()

	memories, err := s.scanMany(rows)
	if err != nil {
		return nil, err
	}

	var results []models.RetrievedMemory
	for _, m := range memories {
		if m.ID == excludeID {
			continue
		}
		sim := search.CosineSimilarity(vec, m.Embedding)
		if sim < threshold {
			continue
		}
		results = append(results, models.RetrievedMemory{Memory: *m, Similarity: sim})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// keywordSupplement tops up an under-filled vector result set with
// lexically relevant candidates from a recent sample, so exact keyword hits
// reach the ranker even when their embeddings score below the threshold.
// Supplemented entries keep their true cosine similarity; the ranker's
// lexical override decides whether they survive.
func (s *MemoryStore) keywordSupplement(results []models.RetrievedMemory, vec []float32, limit int, threshold float64, excludeID int64) []models.RetrievedMemory {
	queryText, err := s.latestPromptContent()
	if err != nil || queryText == "" {
		return results
	}

	sampleSize := limit * fallbackSampleFactor
	if sampleSize > fallbackSampleCap {
		sampleSize = fallbackSampleCap
	}
	sample, err := s.Recent(sampleSize)
	if err != nil {
		s.logger.Warn("keyword supplement sample failed", "error", err)
		return results
	}

	have := make(map[int64]bool, len(results))
	for _, r := range results {
		have[r.ID] = true
	}

	for _, m := range sample {
		if len(results) >= limit {
			break
		}
		if m.ID == excludeID || have[m.ID] {
			continue
		}
		if search.Score(queryText, m.Content)*keywordFallbackScale < threshold {
			continue
		}
		results = append(results, models.RetrievedMemory{
			Memory:     *m,
			Similarity: search.CosineSimilarity(vec, m.Embedding),
		})
		have[m.ID] = true
	}
	return results
}

// keywordFallback scores a recent sample lexically against the query text,
// which is recovered from the latest prompt memory. Scores are scaled down
// slightly so they stay comparable to vector similarities.
func (s *MemoryStore) keywordFallback(limit int, threshold float64, excludeID int64) ([]models.RetrievedMemory, error) {
	queryText, err := s.latestPromptContent()
	if err != nil {
		return nil, err
	}
	if queryText == "" {
		return nil, fmt.Errorf("no query text recoverable")
	}

	sampleSize := limit * fallbackSampleFactor
	if sampleSize > fallbackSampleCap {
		sampleSize = fallbackSampleCap
	}
	sample, err := s.Recent(sampleSize)
	if err != nil {
		return nil, err
	}

	var results []models.RetrievedMemory
	for _, m := range sample {
		if m.ID == excludeID {
			continue
		}
		score := search.Score(queryText, m.Content) * keywordFallbackScale
		if score < threshold {
			continue
		}
		results = append(results, models.RetrievedMemory{Memory: *m, Similarity: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// recencyFallback is the last resort: most recent memories with synthetic
// similarities decreasing strictly from 0.9 toward 0.5, so the caller always
// receives a ranked set.
func (s *MemoryStore) recencyFallback(limit int, excludeID int64) ([]models.RetrievedMemory, error) {
	sample, err := s.Recent(limit + 1)
	if err != nil {
		return nil, err
	}

	var results []models.RetrievedMemory
	for _, m := range sample {
		if m.ID == excludeID {
			continue
		}
		results = append(results, models.RetrievedMemory{Memory: *m})
		if len(results) == limit {
			break
		}
	}

	n := len(results)
	for i := range results {
		if n == 1 {
			results[i].Similarity = 0.9
			break
		}
		results[i].Similarity = 0.9 - 0.4*float64(i)/float64(n-1)
	}
	return results, nil
}

// latestPromptContent recovers the query text from the most recent
// prompt-type memory. During a chat turn that is the prompt stored just
// before the query ran, excluded from results but not from text recovery.
func (s *MemoryStore) latestPromptContent() (string, error) {
	var content string
	err := s.db.QueryRow(`
		SELECT content FROM memories
		WHERE memory_type = ?
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, string(models.MemoryTypePrompt)).Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest prompt: %w", err)
	}
	return content, nil
}

func (s *MemoryStore) scanOne(row *sql.Row) (*models.Memory, error) {
	var m models.Memory
	var memoryType string
	var embedding, metadata sql.NullString
	err := row.Scan(&m.ID, &m.Content, &embedding, &memoryType, &m.MessageID, &m.ContentHash, &metadata, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Embedding = search.DecodeEmbedding(embedding.String)
	m.Type = models.MemoryType(memoryType)
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &m.Metadata)
	}
	return &m, nil
}

func (s *MemoryStore) scanMany(rows *sql.Rows) ([]*models.Memory, error) {
	var memories []*models.Memory
	for rows.Next() {
		var m models.Memory
		var memoryType string
		var embedding, metadata sql.NullString
		if err := rows.Scan(&m.ID, &m.Content, &embedding, &memoryType, &m.MessageID, &m.ContentHash, &metadata, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Embedding = search.DecodeEmbedding(embedding.String)
		m.Type = models.MemoryType(memoryType)
		if metadata.Valid && metadata.String != "" {
			_ = json.Unmarshal([]byte(metadata.String), &m.Metadata)
		}
		memories = append(memories, &m)
	}
	return memories, rows.Err()
}
