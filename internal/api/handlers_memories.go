package api

import (
	"net/http"
	"strconv"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/store"
)

type MemoryHandler struct {
	memories *store.MemoryStore
}

func NewMemoryHandler(memories *store.MemoryStore) *MemoryHandler {
	return &MemoryHandler{memories: memories}
}

// List handles GET /memories
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	memories, total, err := h.memories.List(page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	totalPages := (total + limit - 1) / limit
	writeJSON(w, http.StatusOK, models.ListResponse{
		Memories: memories,
		Pagination: models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// Clear handles DELETE /memories
func (h *MemoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	count, err := h.memories.ClearAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.ClearResponse{Count: count})
}
