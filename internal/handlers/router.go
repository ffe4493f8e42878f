package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"feedback-backend/internal/apperr"
	"feedback-backend/internal/identity"
	"feedback-backend/internal/metrics"
	"feedback-backend/internal/middleware"
	"feedback-backend/internal/models"
	"feedback-backend/internal/respond"
	"feedback-backend/internal/service"
)

type RouterConfig struct {
	Service     *service.FeedbackService
	Resolver    identity.Resolver
	Logger      logrus.FieldLogger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	feedbackHandler := NewFeedbackHandler(cfg.Service)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", identity.HeaderUser, identity.HeaderRole},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.ResolveIdentity(cfg.Resolver))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound("no route for %s", r.URL.Path))
	})

	r.Get("/health", Health)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Public routes
	r.Post("/feedback", feedbackHandler.SubmitFeedback)

	// Moderator routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(models.RoleModerator))

		r.Get("/feedback", feedbackHandler.ListFeedback)
		r.Get("/feedback/{id}", feedbackHandler.GetFeedback)
		r.Post("/feedback/{id}/approve", feedbackHandler.ApproveFeedback)
		r.Post("/feedback/{id}/reject", feedbackHandler.RejectFeedback)
		r.Post("/feedback/{id}/decision", feedbackHandler.DecideFeedback)
	})

	return r
}
