package vectorsync

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"testing"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/store"
	"github.com/recallstack/recall/internal/vectorstore"
)

// fakeRemote is an in-memory RemoteIndex for exercising sync and hydrate
// without a network.
type fakeRemote struct {
	healthErr  error
	namespaces map[string]map[string]vectorstore.Vector
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{namespaces: make(map[string]map[string]vectorstore.Vector)}
}

func (f *fakeRemote) HealthCheck() error {
	return f.healthErr
}

func (f *fakeRemote) Upsert(indexName, namespace string, vectors []vectorstore.Vector) error {
	ns, ok := f.namespaces[namespace]
	if !ok {
		ns = make(map[string]vectorstore.Vector)
		f.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		ns[v.ID] = v
	}
	return nil
}

func (f *fakeRemote) Fetch(indexName, namespace string, ids []string) (map[string]vectorstore.Vector, error) {
	out := make(map[string]vectorstore.Vector)
	for _, id := range ids {
		if v, ok := f.namespaces[namespace][id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeRemote) ListVectorIDs(indexName, namespace string, limit int) ([]string, error) {
	var ids []string
	for id := range f.namespaces[namespace] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeRemote) DescribeStats(indexName string) (*vectorstore.IndexStats, error) {
	stats := &vectorstore.IndexStats{Namespaces: make(map[string]vectorstore.NamespaceStats)}
	for name, ns := range f.namespaces {
		stats.Namespaces[name] = vectorstore.NamespaceStats{RecordCount: len(ns)}
		stats.TotalCount += len(ns)
	}
	return stats, nil
}

type testEnv struct {
	engine   *Engine
	memories *store.MemoryStore
	messages *store.MessageStore
	syncs    *store.SyncStore
	remote   *fakeRemote
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		memories: store.NewMemoryStore(db, logger),
		messages: store.NewMessageStore(db),
		syncs:    store.NewSyncStore(db),
		remote:   newFakeRemote(),
	}
	env.engine = NewEngine(env.memories, env.messages, env.syncs, env.remote, logger)
	return env
}

func (env *testEnv) seedMemories(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		m := &models.Memory{
			Content:     fmt.Sprintf("memory number %d", i),
			Embedding:   []float32{float32(i), 1},
			Type:        models.MemoryTypeResponse,
			ContentHash: fmt.Sprintf("hash-%d", i),
			CreatedAt:   int64(1000 + i),
		}
		if err := env.memories.Insert(m); err != nil {
			t.Fatalf("seed memory %d: %v", i, err)
		}
	}
}

func TestSyncPushesAndDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	env.seedMemories(t, 3)

	first, err := env.engine.Sync("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if first.Count != 3 || first.DuplicateCount != 0 || first.DedupRate != 0 {
		t.Fatalf("first sync: unexpected result %+v", first)
	}
	if first.TotalProcessed != 3 || first.VectorCount != 3 {
		t.Fatalf("first sync: unexpected totals %+v", first)
	}

	// Re-syncing unchanged memories finds every identity key remotely.
	second, err := env.engine.Sync("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if second.Count != 0 || second.DuplicateCount != 3 || second.DedupRate != 100 {
		t.Fatalf("second sync: unexpected result %+v", second)
	}
	if second.VectorCount != 3 {
		t.Fatalf("re-sync should not grow the remote namespace, got %d", second.VectorCount)
	}
}

func TestSyncSkipsMemoriesWithoutEmbedding(t *testing.T) {
	env := newTestEnv(t)
	env.seedMemories(t, 2)
	bare := &models.Memory{
		Content:     "never embedded",
		Type:        models.MemoryTypeResponse,
		ContentHash: "hash-bare",
	}
	if err := env.memories.Insert(bare); err != nil {
		t.Fatalf("insert bare memory: %v", err)
	}

	result, err := env.engine.Sync("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.TotalProcessed != 2 || result.Count != 2 {
		t.Fatalf("expected only embedded memories pushed, got %+v", result)
	}
}

func TestSyncRemoteUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.remote.healthErr = errors.New("connection refused")

	if _, err := env.engine.Sync("recall-index", "default", 0); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
	if _, err := env.engine.Hydrate("recall-index", "default", 0); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable from hydrate, got %v", err)
	}
}

func TestSyncRejectedWhileGateHeld(t *testing.T) {
	env := newTestEnv(t)
	env.seedMemories(t, 1)

	if !env.engine.Gate().TryAcquire("hydrate") {
		t.Fatalf("could not pre-acquire gate")
	}
	if _, err := env.engine.Sync("recall-index", "default", 0); !errors.Is(err, ErrOperationInProgress) {
		t.Fatalf("expected ErrOperationInProgress, got %v", err)
	}
	env.engine.Gate().Release()

	if _, err := env.engine.Sync("recall-index", "default", 0); err != nil {
		t.Fatalf("sync after release: %v", err)
	}
	if env.engine.Gate().Current() != "none" {
		t.Fatalf("gate still held after sync: %q", env.engine.Gate().Current())
	}
}

func TestSyncRecordsHistoryAndState(t *testing.T) {
	env := newTestEnv(t)
	env.seedMemories(t, 2)

	if _, err := env.engine.Sync("recall-index", "default", 0); err != nil {
		t.Fatalf("sync: %v", err)
	}

	history, err := env.syncs.History(10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Operation != "sync" || history[0].Count != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}

	state, err := env.syncs.GetState()
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if !state.Enabled || state.ActiveIndexName != "recall-index" || state.Namespace != "default" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.LastSyncAt == 0 {
		t.Fatalf("last sync timestamp not recorded")
	}
}

func TestHydratePullsAndDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	env.remote.namespaces["default"] = map[string]vectorstore.Vector{
		"remote-1": {
			ID:     "remote-1",
			Values: []float32{1, 0},
			Metadata: map[string]any{
				"content": "remembered from another device",
				"type":    "prompt",
			},
		},
		"remote-2": {
			ID:     "remote-2",
			Values: []float32{0, 1},
			Metadata: map[string]any{
				"content": "an assistant reply worth keeping",
				"type":    "response",
			},
		},
	}

	first, err := env.engine.Hydrate("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("first hydrate: %v", err)
	}
	if first.Count != 2 || first.DuplicateCount != 0 || first.TotalProcessed != 2 {
		t.Fatalf("first hydrate: unexpected result %+v", first)
	}

	for _, hash := range []string{"remote-1", "remote-2"} {
		exists, err := env.memories.ExistsByContentHash(hash)
		if err != nil || !exists {
			t.Fatalf("hydrated memory %s missing: %v, %v", hash, exists, err)
		}
	}

	// Placeholder messages take their role from the memory type.
	msgs, err := env.messages.Recent(10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	roles := map[models.Role]int{}
	for _, m := range msgs {
		roles[m.Role]++
	}
	if roles[models.RoleUser] != 1 || roles[models.RoleAssistant] != 1 {
		t.Fatalf("expected one placeholder per role, got %v", roles)
	}

	second, err := env.engine.Hydrate("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("second hydrate: %v", err)
	}
	if second.Count != 0 || second.DuplicateCount != 2 || second.DedupRate != 100 {
		t.Fatalf("second hydrate: unexpected result %+v", second)
	}
}

func TestHydrateEmptyNamespace(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.engine.Hydrate("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if result.Count != 0 || result.TotalProcessed != 0 {
		t.Fatalf("empty namespace should short-circuit, got %+v", result)
	}
}

func TestHydrateSkipsUnprocessableVectors(t *testing.T) {
	env := newTestEnv(t)
	env.remote.namespaces["default"] = map[string]vectorstore.Vector{
		"good": {
			ID:       "good",
			Values:   []float32{1, 0},
			Metadata: map[string]any{"content": "a valid record", "type": "prompt"},
		},
		"no-content": {
			ID:       "no-content",
			Values:   []float32{1, 0},
			Metadata: map[string]any{"type": "prompt"},
		},
		"no-values": {
			ID:       "no-values",
			Metadata: map[string]any{"content": "vector lost its values", "type": "prompt"},
		},
	}

	result, err := env.engine.Hydrate("recall-index", "default", 0)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("expected only the valid record inserted, got %+v", result)
	}
	if result.TotalProcessed != 3 {
		t.Fatalf("expected all records processed, got %+v", result)
	}
}

func TestHydrateReusesExistingMessage(t *testing.T) {
	env := newTestEnv(t)

	existing := &models.Message{Content: "original user message", Role: models.RoleUser}
	if err := env.messages.Insert(existing); err != nil {
		t.Fatalf("insert message: %v", err)
	}

	// JSON decoding turns numeric metadata into float64.
	env.remote.namespaces["default"] = map[string]vectorstore.Vector{
		"remote-1": {
			ID:     "remote-1",
			Values: []float32{1, 0},
			Metadata: map[string]any{
				"content":   "original user message",
				"type":      "prompt",
				"messageId": float64(existing.ID),
			},
		},
	}

	if _, err := env.engine.Hydrate("recall-index", "default", 0); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	msgs, err := env.messages.Recent(10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected no placeholder message, got %d messages", len(msgs))
	}
}
