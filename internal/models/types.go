package models

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	Content string `json:"content"`
	ModelID string `json:"modelId,omitempty"`
}

// ThresholdDetails reports how the retrieval threshold was derived for a turn.
type ThresholdDetails struct {
	BaseThreshold    float64 `json:"baseThreshold"`
	Factor           float64 `json:"factor"`
	AppliedThreshold float64 `json:"appliedThreshold"`
	QueryKind        string  `json:"queryKind"`
}

// ChatContext carries the retrieval context that backed one response.
type ChatContext struct {
	RelevantMemories    []RetrievedMemory `json:"relevantMemories"`
	SimilarityThreshold float64           `json:"similarityThreshold"`
	ThresholdDetails    ThresholdDetails  `json:"thresholdDetails"`
}

// ChatResponse is returned from POST /chat.
type ChatResponse struct {
	Message *Message    `json:"message"`
	Context ChatContext `json:"context"`
}

// Pagination holds pagination metadata.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListResponse is returned from GET /memories.
type ListResponse struct {
	Memories   []*Memory  `json:"memories"`
	Pagination Pagination `json:"pagination"`
}

// ClearResponse is returned from DELETE /memories.
type ClearResponse struct {
	Count int `json:"count"`
}

// SyncRequest is the payload for POST /sync and POST /sync/hydrate.
type SyncRequest struct {
	IndexName string `json:"indexName"`
	Namespace string `json:"namespace"`
	Limit     int    `json:"limit,omitempty"`
}

// SyncHistoryResponse is returned from GET /sync/history.
type SyncHistoryResponse struct {
	Runs []*SyncRecord `json:"runs"`
}

// HealthResponse is returned from GET /health.
type HealthResponse struct {
	Status      string       `json:"status"`
	DB          ServiceCheck `json:"db"`
	Embedder    ServiceCheck `json:"embedder"`
	RemoteIndex ServiceCheck `json:"remoteIndex"`
	MemoryCount int          `json:"memoryCount"`
}

type ServiceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
