package store

import (
	"math"
	"testing"

	"github.com/recallstack/recall/internal/models"
)

func insertMemory(t *testing.T, s *MemoryStore, content string, memType models.MemoryType, embedding []float32, createdAt int64) *models.Memory {
	t.Helper()
	m := &models.Memory{
		Content:     content,
		Embedding:   embedding,
		Type:        memType,
		ContentHash: "hash-" + content,
		CreatedAt:   createdAt,
	}
	if err := s.Insert(m); err != nil {
		t.Fatalf("insert memory %q: %v", content, err)
	}
	return m
}

func TestMemoryInsertAndGet(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	m := &models.Memory{
		Content:     "the cat sat on the mat",
		Embedding:   []float32{0.1, 0.2, 0.3},
		Type:        models.MemoryTypePrompt,
		ContentHash: "abc123",
		Metadata:    map[string]any{"source": "test"},
	}
	if err := memories.Insert(m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if m.ID == 0 {
		t.Fatalf("insert did not assign an id")
	}

	got, err := memories.GetByID(m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("memory not found after insert")
	}
	if got.Content != m.Content || got.Type != models.MemoryTypePrompt || got.ContentHash != "abc123" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
	if len(got.Embedding) != 3 {
		t.Fatalf("embedding lost in roundtrip: %v", got.Embedding)
	}
	if got.Metadata["source"] != "test" {
		t.Fatalf("metadata lost in roundtrip: %v", got.Metadata)
	}

	missing, err := memories.GetByID(9999)
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing id, got %+v", missing)
	}
}

func TestMemoryListPagination(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	for i := 0; i < 5; i++ {
		insertMemory(t, memories, string(rune('a'+i)), models.MemoryTypeResponse, nil, int64(1000+i))
	}

	page1, total, err := memories.List(1, 2)
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page1) != 2 || page1[0].Content != "e" || page1[1].Content != "d" {
		t.Fatalf("page 1 should hold newest first, got %v", page1)
	}

	page3, _, err := memories.List(3, 2)
	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}
	if len(page3) != 1 || page3[0].Content != "a" {
		t.Fatalf("page 3 should hold the oldest memory, got %v", page3)
	}
}

func TestMemoryClearAll(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	insertMemory(t, memories, "one", models.MemoryTypePrompt, nil, 1000)
	insertMemory(t, memories, "two", models.MemoryTypeResponse, nil, 1001)

	n, err := memories.ClearAll()
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if count, _ := db.MemoryCount(); count != 0 {
		t.Fatalf("expected empty table, got %d rows", count)
	}
}

func TestContentHashLookups(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	insertMemory(t, memories, "one", models.MemoryTypePrompt, nil, 1000)

	exists, err := memories.ExistsByContentHash("hash-one")
	if err != nil || !exists {
		t.Fatalf("expected hash-one to exist, got %v, %v", exists, err)
	}
	exists, err = memories.ExistsByContentHash("hash-two")
	if err != nil || exists {
		t.Fatalf("expected hash-two to be absent, got %v, %v", exists, err)
	}

	set, err := memories.ContentHashSet()
	if err != nil {
		t.Fatalf("content hash set: %v", err)
	}
	if !set["hash-one"] || len(set) != 1 {
		t.Fatalf("unexpected hash set: %v", set)
	}
}

func TestQueryByEmbeddingVectorPath(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	insertMemory(t, memories, "alpha", models.MemoryTypeResponse, []float32{1, 0}, 1000)
	insertMemory(t, memories, "beta", models.MemoryTypeResponse, []float32{0.8, 0.6}, 1001)
	insertMemory(t, memories, "gamma", models.MemoryTypeResponse, []float32{0, 1}, 1002)

	results := memories.QueryByEmbedding([]float32{1, 0}, 10, 0.75, 0)
	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].Content != "alpha" || results[1].Content != "beta" {
		t.Fatalf("expected descending similarity order, got %q then %q",
			results[0].Content, results[1].Content)
	}
	if math.Abs(results[0].Similarity-1.0) > 1e-6 || math.Abs(results[1].Similarity-0.8) > 1e-6 {
		t.Fatalf("unexpected similarities: %v, %v", results[0].Similarity, results[1].Similarity)
	}
}

func TestQueryByEmbeddingExcludesSelf(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	self := insertMemory(t, memories, "what is the plan", models.MemoryTypePrompt, []float32{1, 0}, 1000)
	insertMemory(t, memories, "the plan is ready", models.MemoryTypeResponse, []float32{0.9, 0.436}, 1001)

	results := memories.QueryByEmbedding([]float32{1, 0}, 10, 0.5, self.ID)
	for _, r := range results {
		if r.ID == self.ID {
			t.Fatalf("query returned the excluded memory")
		}
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestQueryByEmbeddingKeywordSupplement(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	// The stored answer's embedding sits below the threshold, but the prompt
	// asks for it by name. The supplement pass surfaces it for the ranker.
	answer := insertMemory(t, memories, "My favorite car is a Ferrari 308GTSi",
		models.MemoryTypeResponse, []float32{0.4, 0.9165151}, 1000)
	prompt := insertMemory(t, memories, "What is my favorite car?",
		models.MemoryTypePrompt, []float32{1, 0}, 1001)

	results := memories.QueryByEmbedding([]float32{1, 0}, 20, 0.525, prompt.ID)
	if len(results) != 1 {
		t.Fatalf("expected the lexical match to be supplemented, got %d results", len(results))
	}
	if results[0].ID != answer.ID {
		t.Fatalf("expected memory %d, got %d", answer.ID, results[0].ID)
	}
	// Supplemented entries carry their true cosine similarity.
	if math.Abs(results[0].Similarity-0.4) > 1e-3 {
		t.Fatalf("expected similarity near 0.4, got %v", results[0].Similarity)
	}
}

func TestQueryByEmbeddingKeywordFallback(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	prompt := insertMemory(t, memories, "tell me about ferrari", models.MemoryTypePrompt, nil, 1002)
	insertMemory(t, memories, "ferrari is fast", models.MemoryTypeResponse, nil, 1001)
	insertMemory(t, memories, "bananas are yellow", models.MemoryTypeResponse, nil, 1000)

	// No query vector forces the keyword fallback.
	results := memories.QueryByEmbedding(nil, 5, 0.1, prompt.ID)
	if len(results) != 1 {
		t.Fatalf("expected 1 keyword match, got %d", len(results))
	}
	if results[0].Content != "ferrari is fast" {
		t.Fatalf("expected the lexical match, got %q", results[0].Content)
	}
	if results[0].Similarity <= 0 || results[0].Similarity > keywordFallbackScale {
		t.Fatalf("fallback similarity should be scaled down, got %v", results[0].Similarity)
	}
}

func TestQueryByEmbeddingRecencyFallback(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	// Response-only memories leave no query text to recover, so the chain
	// ends at the recency fallback.
	insertMemory(t, memories, "oldest", models.MemoryTypeResponse, nil, 1000)
	insertMemory(t, memories, "middle", models.MemoryTypeResponse, nil, 1001)
	insertMemory(t, memories, "newest", models.MemoryTypeResponse, nil, 1002)

	results := memories.QueryByEmbedding(nil, 5, 0.5, 0)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Content != "newest" || results[2].Content != "oldest" {
		t.Fatalf("expected newest first, got %q ... %q", results[0].Content, results[2].Content)
	}

	want := []float64{0.9, 0.7, 0.5}
	for i, r := range results {
		if math.Abs(r.Similarity-want[i]) > 1e-9 {
			t.Fatalf("synthetic similarity %d: expected %v, got %v", i, want[i], r.Similarity)
		}
		if i > 0 && results[i].Similarity >= results[i-1].Similarity {
			t.Fatalf("synthetic similarities must strictly decrease")
		}
	}
}

func TestQueryByEmbeddingSingleRecencyResult(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	insertMemory(t, memories, "only", models.MemoryTypeResponse, nil, 1000)

	results := memories.QueryByEmbedding(nil, 5, 0.5, 0)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Similarity != 0.9 {
		t.Fatalf("single result should score 0.9, got %v", results[0].Similarity)
	}
}

func TestQueryByEmbeddingEmptyStore(t *testing.T) {
	db := newTestDB(t)
	memories := NewMemoryStore(db, testLogger())

	if results := memories.QueryByEmbedding([]float32{1, 0}, 5, 0.5, 0); len(results) != 0 {
		t.Fatalf("expected no results from empty store, got %d", len(results))
	}
}
