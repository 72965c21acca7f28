// Package chat orchestrates one conversation turn: persist the prompt,
// retrieve and rank relevant memories, call the language model, persist the
// response. Partial state is accepted: a prompt stored before a provider
// failure is not rolled back.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/recallstack/recall/internal/content"
	"github.com/recallstack/recall/internal/embedding"
	"github.com/recallstack/recall/internal/llm"
	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/search"
	"github.com/recallstack/recall/internal/store"
)

// searchLimitFactor widens the store query relative to the context size so
// the ranker has candidates to filter.
const searchLimitFactor = 4

// recentMessageWindow is how many raw messages accompany the ranked
// memories for continuity.
const recentMessageWindow = 6

// extractAboveLength switches embedding input to key-sentence extraction
// for long content.
const extractAboveLength = 1000

// Service runs chat turns.
type Service struct {
	messages *store.MessageStore
	memories *store.MemoryStore
	settings *store.SettingsStore
	embedder embedding.Embedder
	llm      llm.Completer
	logger   *slog.Logger
}

func NewService(
	messages *store.MessageStore,
	memories *store.MemoryStore,
	settings *store.SettingsStore,
	embedder embedding.Embedder,
	completer llm.Completer,
	logger *slog.Logger,
) *Service {
	return &Service{
		messages: messages,
		memories: memories,
		settings: settings,
		embedder: embedder,
		llm:      completer,
		logger:   logger,
	}
}

// SubmitTurn executes one full chat turn and returns the assistant message
// with the retrieval context that backed it.
func (s *Service) SubmitTurn(ctx context.Context, req *models.ChatRequest) (*models.ChatResponse, error) {
	if req.Content == "" {
		return nil, fmt.Errorf("content is required")
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	modelID := req.ModelID
	if modelID == "" {
		modelID = settings.DefaultModelID
	}

	// Persist the user message first; it survives any later failure.
	userMsg := &models.Message{
		Content: req.Content,
		Role:    models.RoleUser,
		ModelID: modelID,
	}
	if err := s.messages.Insert(userMsg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	promptMemory, vec, err := s.storeMemory(ctx, req.Content, models.MemoryTypePrompt, userMsg.ID, nil)
	if err != nil {
		return nil, err
	}

	// Threshold adjustment: questions search wider than statements.
	classification := search.Classify(req.Content)
	base := search.NormalizeThreshold(settings.SimilarityThreshold)
	factor := settings.StatementThresholdFactor
	if classification.Kind == search.KindQuestion {
		factor = settings.QuestionThresholdFactor
	}
	applied := base * factor
	if applied > 1 {
		applied = 1
	}

	limit := settings.ContextSize * searchLimitFactor
	candidates := s.memories.QueryByEmbedding(vec, limit, applied, promptMemory.ID)

	// Ranking re-filters against the unadjusted threshold.
	ranked := search.Rank(req.Content, candidates, base)
	if len(ranked) > settings.ContextSize {
		ranked = ranked[:settings.ContextSize]
	}

	recent, err := s.messages.Recent(recentMessageWindow)
	if err != nil {
		s.logger.Warn("load recent messages", "error", err)
	}

	contextText := buildContext(ranked, recent)
	reply, err := s.llm.Complete(ctx, req.Content, contextText, modelID)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}

	assistantMsg := &models.Message{
		Content: reply,
		Role:    models.RoleAssistant,
		ModelID: modelID,
	}
	if err := s.messages.Insert(assistantMsg); err != nil {
		return nil, fmt.Errorf("store response message: %w", err)
	}

	usedIDs := make([]int64, 0, len(ranked))
	for _, m := range ranked {
		usedIDs = append(usedIDs, m.ID)
	}
	metadata := map[string]any{"usedMemoryIds": usedIDs}
	if _, _, err := s.storeMemory(ctx, reply, models.MemoryTypeResponse, assistantMsg.ID, metadata); err != nil {
		// The reply is already generated and stored as a message; losing
		// the memory row costs future recall, not this turn.
		s.logger.Error("store response memory", "error", err)
	}

	return &models.ChatResponse{
		Message: assistantMsg,
		Context: models.ChatContext{
			RelevantMemories:    ranked,
			SimilarityThreshold: applied,
			ThresholdDetails: models.ThresholdDetails{
				BaseThreshold:    base,
				Factor:           factor,
				AppliedThreshold: applied,
				QueryKind:        classification.Kind.String(),
			},
		},
	}, nil
}

// storeMemory cleans and embeds text, then persists it as a memory owned by
// messageID. Returns the memory and its embedding vector.
func (s *Service) storeMemory(ctx context.Context, text string, memType models.MemoryType, messageID int64, metadata map[string]any) (*models.Memory, []float32, error) {
	cleaned := content.Clean(text)
	if cleaned == "" {
		cleaned = text
	}

	embedText := cleaned
	if len(embedText) > extractAboveLength {
		embedText = content.ExtractKeySentences(embedText)
	}

	vec, err := s.embedder.Embed(ctx, embedText)
	if err != nil {
		return nil, nil, fmt.Errorf("embed content: %w", err)
	}

	mem := &models.Memory{
		Content:     cleaned,
		Embedding:   vec,
		Type:        memType,
		MessageID:   &messageID,
		ContentHash: embedding.ContentHash(cleaned),
		Metadata:    metadata,
	}
	if err := s.memories.Insert(mem); err != nil {
		return nil, nil, fmt.Errorf("store memory: %w", err)
	}
	return mem, vec, nil
}
