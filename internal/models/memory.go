package models

// MemoryType classifies which side of a conversation turn a memory came from.
type MemoryType string

const (
	MemoryTypePrompt   MemoryType = "prompt"
	MemoryTypeResponse MemoryType = "response"
)

func (t MemoryType) IsValid() bool {
	return t == MemoryTypePrompt || t == MemoryTypeResponse
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one turn of conversation, created before its memory.
// Messages are never mutated after insert.
type Message struct {
	ID        int64  `json:"id"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	ModelID   string `json:"modelId,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Memory is an embedded fragment of conversation stored in SQLite.
// The embedding column holds the vector serialized as JSON text.
// Every memory references an owning message except placeholders
// fabricated during hydration recovery.
type Memory struct {
	ID          int64          `json:"id"`
	Content     string         `json:"content"`
	Embedding   []float32      `json:"-"`
	Type        MemoryType     `json:"type"`
	MessageID   *int64         `json:"messageId,omitempty"`
	ContentHash string         `json:"contentHash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   int64          `json:"createdAt"`
}

// RetrievedMemory is a memory plus retrieval scoring, derived per query.
// It exists only within one retrieval call and is never persisted.
type RetrievedMemory struct {
	Memory
	Similarity         float64 `json:"similarity"`
	OriginalSimilarity float64 `json:"originalSimilarity,omitempty"`
	KeywordScore       float64 `json:"keywordScore,omitempty"`
	HybridScore        float64 `json:"hybridScore,omitempty"`
}

// EmbeddingCacheEntry stores a cached embedding keyed by content hash.
type EmbeddingCacheEntry struct {
	ContentHash string `json:"contentHash"`
	Embedding   []byte `json:"embedding"`
	Dimension   int    `json:"dimension"`
	Model       string `json:"model"`
	UpdatedAt   int64  `json:"updatedAt"`
}
