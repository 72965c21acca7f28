package models

// Settings is the singleton tuning row read at the start of every chat turn.
// SimilarityThreshold accepts a 0-1 float or a percent string like "85%";
// normalization happens at query time, not at write time.
type Settings struct {
	ContextSize              int     `json:"contextSize"`
	SimilarityThreshold      string  `json:"similarityThreshold"`
	QuestionThresholdFactor  float64 `json:"questionThresholdFactor"`
	StatementThresholdFactor float64 `json:"statementThresholdFactor"`
	DefaultModelID           string  `json:"defaultModelId"`
	DefaultEmbeddingModelID  string  `json:"defaultEmbeddingModelId"`
}

// DefaultSettings returns the values seeded on first open.
func DefaultSettings() *Settings {
	return &Settings{
		ContextSize:              5,
		SimilarityThreshold:      "0.75",
		QuestionThresholdFactor:  0.7,
		StatementThresholdFactor: 1.0,
		DefaultModelID:           "gpt-4o-mini",
		DefaultEmbeddingModelID:  "text-embedding-3-small",
	}
}

// SyncState is the singleton row describing the remote index binding.
// CurrentOperation is reporting-only; the actual mutual exclusion for
// sync/hydrate lives in an in-process gate.
type SyncState struct {
	Enabled          bool   `json:"enabled"`
	ActiveIndexName  string `json:"activeIndexName,omitempty"`
	Namespace        string `json:"namespace,omitempty"`
	CurrentOperation string `json:"currentOperation"`
	LastSyncAt       int64  `json:"lastSyncAt,omitempty"`
}

// SyncResult reports the outcome of one sync or hydrate run.
type SyncResult struct {
	Operation      string  `json:"operation"`
	IndexName      string  `json:"indexName"`
	Namespace      string  `json:"namespace"`
	Count          int     `json:"count"`
	DuplicateCount int     `json:"duplicateCount"`
	DedupRate      float64 `json:"dedupRate"`
	TotalProcessed int     `json:"totalProcessed"`
	VectorCount    int     `json:"vectorCount"`
	Timestamp      int64   `json:"timestamp"`
}

// SyncRecord is one persisted row of sync history.
type SyncRecord struct {
	ID             string  `json:"id"`
	Operation      string  `json:"operation"`
	IndexName      string  `json:"indexName"`
	Namespace      string  `json:"namespace"`
	Count          int     `json:"count"`
	DuplicateCount int     `json:"duplicateCount"`
	DedupRate      float64 `json:"dedupRate"`
	TotalProcessed int     `json:"totalProcessed"`
	VectorCount    int     `json:"vectorCount"`
	CreatedAt      int64   `json:"createdAt"`
}
