package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/store"
	"github.com/recallstack/recall/internal/vectorsync"
)

type SyncHandler struct {
	engine *vectorsync.Engine
	syncs  *store.SyncStore
}

func NewSyncHandler(engine *vectorsync.Engine, syncs *store.SyncStore) *SyncHandler {
	return &SyncHandler{engine: engine, syncs: syncs}
}

// Sync handles POST /sync
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSyncRequest(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Sync(req.IndexName, req.Namespace, req.Limit)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Hydrate handles POST /sync/hydrate
func (h *SyncHandler) Hydrate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSyncRequest(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Hydrate(req.IndexName, req.Namespace, req.Limit)
	if err != nil {
		h.writeSyncError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// State handles GET /sync/state
func (h *SyncHandler) State(w http.ResponseWriter, r *http.Request) {
	state, err := h.syncs.GetState()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	state.CurrentOperation = h.engine.Gate().Current()
	writeJSON(w, http.StatusOK, state)
}

// History handles GET /sync/history
func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.syncs.History(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.SyncHistoryResponse{Runs: runs})
}

func (h *SyncHandler) decodeSyncRequest(w http.ResponseWriter, r *http.Request) (*models.SyncRequest, bool) {
	var req models.SyncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	if req.IndexName == "" {
		writeError(w, http.StatusBadRequest, "indexName is required")
		return nil, false
	}
	if req.Namespace == "" {
		writeError(w, http.StatusBadRequest, "namespace is required")
		return nil, false
	}
	return &req, true
}

func (h *SyncHandler) writeSyncError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vectorsync.ErrOperationInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, vectorsync.ErrRemoteUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
