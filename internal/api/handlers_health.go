package api

import (
	"context"
	"net/http"
	"time"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/store"
	"github.com/recallstack/recall/internal/vectorstore"
)

// embedderChecker is implemented by providers that can verify reachability.
type embedderChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db       *store.DB
	embedder embedderChecker
	remote   *vectorstore.PineconeClient
}

func NewHealthHandler(db *store.DB, embedder embedderChecker, remote *vectorstore.PineconeClient) *HealthHandler {
	return &HealthHandler{db: db, embedder: embedder, remote: remote}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status: "ok",
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Check DB
	count, err := h.db.MemoryCount()
	if err != nil {
		resp.DB = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.DB = models.ServiceCheck{Status: "ok"}
		resp.MemoryCount = count
	}

	// Check embedder
	if h.embedder == nil {
		resp.Embedder = models.ServiceCheck{Status: "disabled"}
	} else if err := h.embedder.HealthCheck(ctx); err != nil {
		resp.Embedder = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Embedder = models.ServiceCheck{Status: "ok"}
	}

	// Check remote index
	if h.remote == nil {
		resp.RemoteIndex = models.ServiceCheck{Status: "disabled"}
	} else if err := h.remote.HealthCheck(); err != nil {
		resp.RemoteIndex = models.ServiceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.RemoteIndex = models.ServiceCheck{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
