package github

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	gh "github.com/google/go-github/v72/github"
	"github.com/jellydator/ttlcache/v3"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/usecase"
	"github.com/secmon-lab/shinobi/pkg/utils/async"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

// deliveryTTL bounds how long delivery IDs are remembered for redelivery
// suppression. GitHub redelivers within minutes; an hour is plenty.
const deliveryTTL = time.Hour

// Handler handles GitHub webhook deliveries
type Handler struct {
	triageUC usecase.TriageUseCase
	secret   []byte
	seen     *ttlcache.Cache[string, struct{}]
}

// NewHandler creates a new GitHub webhook handler. The webhook secret
// must not be empty; unsigned deliveries are never accepted.
func NewHandler(ctx context.Context, triageUC usecase.TriageUseCase, webhookSecret string) (*Handler, error) {
	if webhookSecret == "" {
		return nil, goerr.New("webhook secret is required")
	}

	seen := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](deliveryTTL),
	)
	go seen.Start()

	return &Handler{
		triageUC: triageUC,
		secret:   []byte(webhookSecret),
		seen:     seen,
	}, nil
}

// Close stops the delivery dedup cache
func (h *Handler) Close() {
	h.seen.Stop()
}

// HandleWebhook verifies and dispatches a GitHub webhook delivery.
// Processing runs asynchronously; GitHub gets its 200 right away.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := logging.From(r.Context())

	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		logger.Warn("Webhook signature verification failed", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "invalid webhook signature"), http.StatusUnauthorized)
		return
	}

	h.triageUC.MarkWebhookReceived()

	eventType := gh.WebHookType(r)
	deliveryID := r.Header.Get("X-GitHub-Delivery")

	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		logger.Warn("Failed to parse webhook payload", "eventType", eventType, "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "failed to parse webhook payload"), http.StatusBadRequest)
		return
	}

	switch ev := event.(type) {
	case *gh.IssuesEvent:
		h.handleIssuesEvent(w, r, ev, deliveryID)

	case *gh.PingEvent:
		logger.Info("Webhook ping received", "hookID", ev.GetHookID())
		h.writeAccepted(w, "pong")

	default:
		logger.Debug("Ignoring webhook event", "eventType", eventType)
		h.writeAccepted(w, "ignored")
	}
}

func (h *Handler) handleIssuesEvent(w http.ResponseWriter, r *http.Request, ev *gh.IssuesEvent, deliveryID string) {
	logger := logging.From(r.Context())

	if ev.GetAction() != "opened" {
		logger.Debug("Ignoring issues event", "action", ev.GetAction())
		h.writeAccepted(w, "ignored")
		return
	}

	// Suppress GitHub redeliveries of the same event
	if deliveryID != "" {
		if h.seen.Has(deliveryID) {
			logger.Info("Duplicate webhook delivery, skipping", "deliveryID", deliveryID)
			h.writeAccepted(w, "duplicate delivery")
			return
		}
		h.seen.Set(deliveryID, struct{}{}, ttlcache.DefaultTTL)
	}

	issue := &model.Issue{
		Repo:   types.RepoName(ev.GetRepo().GetFullName()),
		Number: types.IssueNumber(ev.GetIssue().GetNumber()),
		Title:  ev.GetIssue().GetTitle(),
		Body:   ev.GetIssue().GetBody(),
		URL:    ev.GetIssue().GetHTMLURL(),
	}
	if err := issue.Validate(); err != nil {
		logger.Warn("Malformed issues event", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "malformed issues event"), http.StatusBadRequest)
		return
	}

	logger.Info("Issue opened event accepted",
		"repo", issue.Repo,
		"number", issue.Number,
		"deliveryID", deliveryID,
	)

	h.writeAccepted(w, "accepted")

	async.Dispatch(r.Context(), func(ctx context.Context) error {
		if _, err := h.triageUC.HandleIssueOpened(ctx, issue); err != nil {
			return goerr.Wrap(err, "failed to triage issue",
				goerr.V("repo", issue.Repo),
				goerr.V("number", issue.Number))
		}
		return nil
	})
}

func (h *Handler) writeAccepted(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
