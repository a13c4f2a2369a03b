package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"sunny-backend/internal/handlers"
	"sunny-backend/internal/middleware"
	"sunny-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	requestHandler *handlers.RequestHandler,
	knowledgeHandler *handlers.KnowledgeHandler,
	promoHandler *handlers.PromoHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// The chat widget is unauthenticated and each turn costs an AI call,
	// so it gets its own tighter limiter than auth.
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	chatLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter.Middleware)
				r.Post("/login", authHandler.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/me", authHandler.Me)
			})
		})

		// ──── Chat Routes (public, used by the site widget) ────
		r.Route("/chat", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(chatLimiter.Middleware)
				r.Post("/session", chatHandler.CreateSession)
				r.Post("/message", chatHandler.SendMessage)
				r.Post("/end", chatHandler.EndSession)
			})
			r.Get("/session/{id}", chatHandler.GetSession)

			// Session history is dashboard-only
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/sessions", chatHandler.ListSessions)
			})
		})

		// ──── Request Routes (dashboard) ────
		r.Route("/requests", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", requestHandler.List)
			r.Get("/{id}", requestHandler.Get)
			r.Put("/{id}/status", requestHandler.UpdateStatus)
			r.Delete("/{id}", requestHandler.Delete)
		})

		// ──── Knowledge Base Routes (dashboard) ────
		r.Route("/knowledge", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", knowledgeHandler.List)
			r.Get("/{id}", knowledgeHandler.Get)
			r.Post("/", knowledgeHandler.Create)
			r.Put("/{id}", knowledgeHandler.Update)
			r.Delete("/{id}", knowledgeHandler.Delete)
		})

		// ──── Promo Routes ────
		r.Route("/promos", func(r chi.Router) {
			r.Get("/active", promoHandler.ListActive) // Public

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/", promoHandler.List)
				r.Get("/{id}", promoHandler.Get)
				r.Post("/", promoHandler.Create)
				r.Put("/{id}", promoHandler.Update)
				r.Delete("/{id}", promoHandler.Delete)
			})
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
