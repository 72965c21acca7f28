package api

import (
	"errors"
	"net/http"

	"github.com/recallstack/recall/internal/chat"
	"github.com/recallstack/recall/internal/embedding"
	"github.com/recallstack/recall/internal/llm"
	"github.com/recallstack/recall/internal/models"
)

type ChatHandler struct {
	svc *chat.Service
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	resp, err := h.svc.SubmitTurn(r.Context(), &req)
	if err != nil {
		if errors.Is(err, embedding.ErrEmbedding) || errors.Is(err, llm.ErrCompletion) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
