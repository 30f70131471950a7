package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/cli/config"
	githubCtrl "github.com/secmon-lab/shinobi/pkg/controller/github"
	slackCtrl "github.com/secmon-lab/shinobi/pkg/controller/slack"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/usecase"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router        chi.Router
	githubHandler *githubCtrl.Handler
}

// NewServer creates a new HTTP server wiring the webhook and API routes
func NewServer(
	ctx context.Context,
	addr string,
	slackConfig *config.Slack,
	githubConfig *config.GitHub,
	triageUC usecase.TriageUseCase,
	slackClient interfaces.SlackClient,
) (*Server, error) {
	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	githubHandler, err := githubCtrl.NewHandler(ctx, triageUC, githubConfig.WebhookSecret)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub webhook handler")
	}
	slackHandler := slackCtrl.NewHandler(ctx, slackConfig, triageUC, slackClient)

	// Health check
	router.Get("/health", handleHealth)

	// API routes
	router.Route("/api", func(r chi.Router) {
		r.Get("/stats", handleStats(triageUC))
	})

	// Webhook routes
	router.Route("/hooks", func(r chi.Router) {
		r.Post("/github/event", githubHandler.HandleWebhook)
		r.Post("/slack/interaction", slackHandler.HandleInteraction)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router:        router,
		githubHandler: githubHandler,
	}

	return server, nil
}

// Router returns the HTTP handler, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases server resources beyond the listener
func (s *Server) Close() {
	s.githubHandler.Close()
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "shinobi",
	}); err != nil {
		logging.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}

// handleStats serves the service counters
func handleStats(triageUC usecase.TriageUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := triageUC.Stats(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			logging.From(r.Context()).Error("Failed to encode stats response", "error", err)
		}
	}
}
