package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/recallstack/recall/internal/chat"
	"github.com/recallstack/recall/internal/store"
	"github.com/recallstack/recall/internal/vectorstore"
	"github.com/recallstack/recall/internal/vectorsync"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(
	db *store.DB,
	chatSvc *chat.Service,
	memories *store.MemoryStore,
	settings *store.SettingsStore,
	syncs *store.SyncStore,
	engine *vectorsync.Engine,
	embedder embedderChecker,
	remote *vectorstore.PineconeClient,
	apiKey string,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	// Handlers
	healthH := NewHealthHandler(db, embedder, remote)
	chatH := NewChatHandler(chatSvc)
	memoryH := NewMemoryHandler(memories)
	settingsH := NewSettingsHandler(settings)
	syncH := NewSyncHandler(engine, syncs)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Post("/chat", chatH.Chat)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryH.List)
			r.Delete("/", memoryH.Clear)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsH.Get)
			r.Put("/", settingsH.Put)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", syncH.Sync)
			r.Post("/hydrate", syncH.Hydrate)
			r.Get("/state", syncH.State)
			r.Get("/history", syncH.History)
		})
	})

	return r
}
