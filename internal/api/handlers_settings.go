package api

import (
	"net/http"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/store"
)

type SettingsHandler struct {
	settings *store.SettingsStore
}

func NewSettingsHandler(settings *store.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get handles GET /settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.settings.Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Put handles PUT /settings
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var st models.Settings
	if err := decodeJSON(r, &st); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if st.ContextSize < 1 {
		writeError(w, http.StatusBadRequest, "contextSize must be positive")
		return
	}
	if st.QuestionThresholdFactor <= 0 || st.StatementThresholdFactor <= 0 {
		writeError(w, http.StatusBadRequest, "threshold factors must be positive")
		return
	}

	if err := h.settings.Put(&st); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
