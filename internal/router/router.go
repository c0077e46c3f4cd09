package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"healthyaar-backend/internal/handlers"
	"healthyaar-backend/internal/logging"
	"healthyaar-backend/internal/middleware"
	"healthyaar-backend/internal/websocket"
)

type Handlers struct {
	Session       *handlers.SessionHandler
	Profile       *handlers.ProfileHandler
	Chat          *handlers.ChatHandler
	Summary       *handlers.SummaryHandler
	Report        *handlers.ReportHandler
	Notifications *handlers.NotificationHandler
	Health        *handlers.HealthHandler
}

type Options struct {
	FrontendURL        string
	RateLimitPerSecond int
}

func New(jwtAuth *middleware.JWTAuth, h Handlers, wsHub *websocket.Hub, log *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logging.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{opts.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Session establishment creates identities; keep it tight.
	sessionLimiter := middleware.RateLimit(10, time.Minute)
	// Every AI call costs upstream quota.
	aiLimiter := middleware.RateLimit(opts.RateLimitPerSecond, time.Second)

	r.Get("/health", h.Health.Check)

	r.Route("/api", func(r chi.Router) {

		// ──── Session ────
		r.Route("/session", func(r chi.Router) {
			r.With(sessionLimiter).Post("/", h.Session.Establish)
			r.With(sessionLimiter).Post("/refresh", h.Session.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Get("/", h.Session.Current)
				r.Post("/logout", h.Session.Logout)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)

			// ──── Profile ────
			r.Get("/profile", h.Profile.Get)
			r.Put("/profile", h.Profile.Save)

			// ──── Chat ────
			r.Get("/chat", h.Chat.Transcript)
			r.With(aiLimiter).Post("/chat", h.Chat.Send)
			r.Delete("/chat", h.Chat.Reset)

			// ──── Summary & reports ────
			r.With(aiLimiter).Post("/generateHealthSummary", h.Summary.Generate)
			r.Post("/reports/image", h.Report.UploadImage)
			r.Delete("/reports/image", h.Report.DiscardImage)
			r.With(aiLimiter).Post("/analyzeReportImage", h.Report.Analyze)

			// ──── Notifications ────
			r.Get("/notifications", h.Notifications.Active)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
