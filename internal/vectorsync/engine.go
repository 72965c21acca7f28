// Package vectorsync reconciles the local memory store with a remote vector
// index: sync pushes local memories up, hydrate pulls remote vectors down.
// Both deduplicate on the content-derived identity key and report duplicate
// rates.
package vectorsync

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/recallstack/recall/internal/embedding"
	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/store"
	"github.com/recallstack/recall/internal/vectorstore"
)

var (
	// ErrOperationInProgress is returned when a sync or hydrate is requested
	// while another one holds the gate.
	ErrOperationInProgress = errors.New("sync operation already in progress")

	// ErrRemoteUnavailable is returned when the remote index service cannot
	// be reached.
	ErrRemoteUnavailable = errors.New("remote vector store unavailable")
)

const (
	batchSize        = 100
	defaultSyncLimit = 500

	opSync    = "sync"
	opHydrate = "hydrate"
)

// RemoteIndex is the slice of the remote store the engine needs.
// *vectorstore.PineconeClient satisfies it.
type RemoteIndex interface {
	HealthCheck() error
	Upsert(indexName, namespace string, vectors []vectorstore.Vector) error
	Fetch(indexName, namespace string, ids []string) (map[string]vectorstore.Vector, error)
	ListVectorIDs(indexName, namespace string, limit int) ([]string, error)
	DescribeStats(indexName string) (*vectorstore.IndexStats, error)
}

// Engine runs sync and hydrate operations under the mutual-exclusion gate.
type Engine struct {
	memories *store.MemoryStore
	messages *store.MessageStore
	syncs    *store.SyncStore
	remote   RemoteIndex
	gate     *Gate
	logger   *slog.Logger
}

func NewEngine(memories *store.MemoryStore, messages *store.MessageStore, syncs *store.SyncStore, remote RemoteIndex, logger *slog.Logger) *Engine {
	return &Engine{
		memories: memories,
		messages: messages,
		syncs:    syncs,
		remote:   remote,
		gate:     NewGate(),
		logger:   logger,
	}
}

// Gate exposes the engine's operation gate for state reporting.
func (e *Engine) Gate() *Gate {
	return e.gate
}

// Sync pushes up to limit local memories into the remote namespace.
// Identity keys derive from content, so re-syncing unchanged memories
// counts them as duplicates instead of creating new remote entries.
func (e *Engine) Sync(indexName, namespace string, limit int) (*models.SyncResult, error) {
	if !e.gate.TryAcquire(opSync) {
		return nil, fmt.Errorf("%w: %s", ErrOperationInProgress, e.gate.Current())
	}
	defer e.gate.Release()

	if err := e.remote.HealthCheck(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	if limit <= 0 {
		limit = defaultSyncLimit
	}
	memories, err := e.memories.Recent(limit)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}

	var vectors []vectorstore.Vector
	for _, m := range memories {
		if len(m.Embedding) == 0 {
			e.logger.Warn("skipping memory without embedding", "id", m.ID)
			continue
		}
		key := m.ContentHash
		if key == "" {
			key = embedding.ContentHash(m.Content)
		}
		metadata := map[string]any{
			"content":   m.Content,
			"type":      string(m.Type),
			"createdAt": m.CreatedAt,
		}
		if m.MessageID != nil {
			metadata["messageId"] = *m.MessageID
		}
		vectors = append(vectors, vectorstore.Vector{
			ID:       key,
			Values:   m.Embedding,
			Metadata: metadata,
		})
	}

	duplicates, err := e.countExisting(indexName, namespace, vectors)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(vectors); start += batchSize {
		end := start + batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		if err := e.remote.Upsert(indexName, namespace, vectors[start:end]); err != nil {
			return nil, fmt.Errorf("upsert batch: %w", err)
		}
	}

	result := e.buildResult(opSync, indexName, namespace, len(vectors), duplicates)
	e.finish(indexName, namespace, result)

	e.logger.Info("sync complete",
		"index", indexName,
		"namespace", namespace,
		"count", result.Count,
		"duplicates", result.DuplicateCount,
		"dedupRate", result.DedupRate,
	)
	return result, nil
}

// Hydrate pulls vectors from the remote namespace into local storage. Every
// hydrated memory gets an owning message: an existing one when the metadata
// names a valid id, a placeholder otherwise.
func (e *Engine) Hydrate(indexName, namespace string, limit int) (*models.SyncResult, error) {
	if !e.gate.TryAcquire(opHydrate) {
		return nil, fmt.Errorf("%w: %s", ErrOperationInProgress, e.gate.Current())
	}
	defer e.gate.Release()

	if err := e.remote.HealthCheck(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}

	stats, err := e.remote.DescribeStats(indexName)
	if err != nil {
		return nil, fmt.Errorf("describe index: %w", err)
	}
	if stats.Namespaces[namespace].RecordCount == 0 {
		result := e.buildResult(opHydrate, indexName, namespace, 0, 0)
		e.finish(indexName, namespace, result)
		return result, nil
	}

	ids, err := e.remote.ListVectorIDs(indexName, namespace, limit)
	if err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}

	// Built once per run so duplicates within the same batch are caught.
	seen, err := e.memories.ContentHashSet()
	if err != nil {
		return nil, fmt.Errorf("load content hashes: %w", err)
	}

	var processed, inserted, duplicates int
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		fetched, err := e.remote.Fetch(indexName, namespace, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("fetch batch: %w", err)
		}

		for _, id := range ids[start:end] {
			v, ok := fetched[id]
			if !ok {
				continue
			}
			processed++

			if seen[v.ID] {
				duplicates++
				continue
			}

			if err := e.insertHydrated(v); err != nil {
				// One bad record does not abort the batch.
				e.logger.Warn("skipping unprocessable vector", "id", v.ID, "error", err)
				continue
			}
			seen[v.ID] = true
			inserted++
		}
	}

	result := &models.SyncResult{
		Operation:      opHydrate,
		IndexName:      indexName,
		Namespace:      namespace,
		Count:          inserted,
		DuplicateCount: duplicates,
		DedupRate:      dedupRate(duplicates, processed),
		TotalProcessed: processed,
		Timestamp:      time.Now().Unix(),
	}
	result.VectorCount = e.remoteCount(indexName, namespace)
	e.finish(indexName, namespace, result)

	e.logger.Info("hydrate complete",
		"index", indexName,
		"namespace", namespace,
		"count", result.Count,
		"duplicates", result.DuplicateCount,
		"dedupRate", result.DedupRate,
	)
	return result, nil
}

// countExisting checks which identity keys already exist remotely, in
// batches.
func (e *Engine) countExisting(indexName, namespace string, vectors []vectorstore.Vector) (int, error) {
	duplicates := 0
	for start := 0; start < len(vectors); start += batchSize {
		end := start + batchSize
		if end > len(vectors) {
			end = len(vectors)
		}
		ids := make([]string, 0, end-start)
		for _, v := range vectors[start:end] {
			ids = append(ids, v.ID)
		}
		existing, err := e.remote.Fetch(indexName, namespace, ids)
		if err != nil {
			return 0, fmt.Errorf("check existing batch: %w", err)
		}
		duplicates += len(existing)
	}
	return duplicates, nil
}

// insertHydrated creates the local memory for one fetched vector, resolving
// or fabricating its owning message.
func (e *Engine) insertHydrated(v vectorstore.Vector) error {
	content, _ := v.Metadata["content"].(string)
	if content == "" {
		return fmt.Errorf("vector has no content metadata")
	}
	if len(v.Values) == 0 {
		return fmt.Errorf("vector has no values")
	}

	memType := models.MemoryTypePrompt
	if t, ok := v.Metadata["type"].(string); ok && models.MemoryType(t).IsValid() {
		memType = models.MemoryType(t)
	}

	messageID, err := e.resolveMessage(v, content, memType)
	if err != nil {
		return err
	}

	mem := &models.Memory{
		Content:     content,
		Embedding:   v.Values,
		Type:        memType,
		MessageID:   &messageID,
		ContentHash: v.ID,
		Metadata:    map[string]any{"hydrated": true},
	}
	if err := e.memories.Insert(mem); err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// resolveMessage reuses the message id carried in vector metadata when it
// names an existing row; otherwise it fabricates a placeholder so the
// memory-to-message invariant holds.
func (e *Engine) resolveMessage(v vectorstore.Vector, content string, memType models.MemoryType) (int64, error) {
	if raw, ok := v.Metadata["messageId"].(float64); ok {
		id := int64(raw)
		msg, err := e.messages.GetByID(id)
		if err != nil {
			return 0, fmt.Errorf("look up message: %w", err)
		}
		if msg != nil {
			return msg.ID, nil
		}
	}

	role := models.RoleUser
	if memType == models.MemoryTypeResponse {
		role = models.RoleAssistant
	}
	placeholder := &models.Message{
		Content: content,
		Role:    role,
	}
	if err := e.messages.Insert(placeholder); err != nil {
		return 0, fmt.Errorf("create placeholder message: %w", err)
	}
	return placeholder.ID, nil
}

func (e *Engine) buildResult(operation, indexName, namespace string, total, duplicates int) *models.SyncResult {
	return &models.SyncResult{
		Operation:      operation,
		IndexName:      indexName,
		Namespace:      namespace,
		Count:          total - duplicates,
		DuplicateCount: duplicates,
		DedupRate:      dedupRate(duplicates, total),
		TotalProcessed: total,
		VectorCount:    e.remoteCount(indexName, namespace),
		Timestamp:      time.Now().Unix(),
	}
}

// finish persists the run outcome: the history row and the active index
// binding. Persistence failures are logged, not surfaced, since the
// operation itself succeeded.
func (e *Engine) finish(indexName, namespace string, result *models.SyncResult) {
	if err := e.syncs.RecordResult(result); err != nil {
		e.logger.Error("record sync result", "error", err)
	}
	state := &models.SyncState{
		Enabled:          true,
		ActiveIndexName:  indexName,
		Namespace:        namespace,
		CurrentOperation: "none",
		LastSyncAt:       result.Timestamp,
	}
	if err := e.syncs.PutState(state); err != nil {
		e.logger.Error("update sync state", "error", err)
	}
}

// remoteCount returns the post-operation record count for the namespace,
// zero when stats are unavailable.
func (e *Engine) remoteCount(indexName, namespace string) int {
	stats, err := e.remote.DescribeStats(indexName)
	if err != nil {
		e.logger.Warn("describe index stats", "error", err)
		return 0
	}
	return stats.Namespaces[namespace].RecordCount
}

func dedupRate(duplicates, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(duplicates) / float64(total) * 100
}
