package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/consignedbydesign/delivery-platform/internal/conversation"
	"github.com/consignedbydesign/delivery-platform/internal/http/handlers"
	httpmiddleware "github.com/consignedbydesign/delivery-platform/internal/http/middleware"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger *logging.Logger

	// Public surface
	SMSWebhook     *handlers.SMSWebhookHandler
	MetricsHandler http.Handler

	// Admin surface (all behind AdminJWT)
	AdminAuthSecret      string
	ConversationsHandler *conversation.Handler
	DeliveriesHandler    *handlers.DeliveriesHandler
	PickupsHandler       *handlers.PickupsHandler
	ItemsHandler         *handlers.ItemsHandler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.SMSWebhook != nil {
			public.Post("/webhooks/twilio/sms", cfg.SMSWebhook.ServeHTTP)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin routes (protected by JWT)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		if cfg.ConversationsHandler != nil {
			cfg.ConversationsHandler.Routes(admin)
		}
		if cfg.DeliveriesHandler != nil {
			cfg.DeliveriesHandler.Routes(admin)
		}
		if cfg.PickupsHandler != nil {
			cfg.PickupsHandler.Routes(admin)
		}
		if cfg.ItemsHandler != nil {
			cfg.ItemsHandler.Routes(admin)
		}
	})

	return r
}
