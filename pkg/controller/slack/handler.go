package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/cli/config"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/usecase"
	"github.com/secmon-lab/shinobi/pkg/utils/async"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

// Handler handles Slack webhook endpoints
type Handler struct {
	slackConfig        *config.Slack
	interactionHandler *InteractionHandler
}

// NewHandler creates a new Slack handler
func NewHandler(ctx context.Context, slackConfig *config.Slack, triageUC usecase.TriageUseCase, slackClient interfaces.SlackClient) *Handler {
	return &Handler{
		slackConfig:        slackConfig,
		interactionHandler: NewInteractionHandler(ctx, triageUC, slackClient),
	}
}

// HandleInteraction handles a single Slack interaction callback. The
// response is acknowledged immediately; processing runs asynchronously.
func (h *Handler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	logger := logging.From(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// The signature covers the raw url-encoded form body
	if err := h.verifySlackSignature(r, body); err != nil {
		logger.Warn("Invalid Slack signature for interaction", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "invalid signature"), http.StatusUnauthorized)
		return
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		logger.Error("Failed to parse form body", "error", err)
		h.writeError(w, r.Context(), goerr.Wrap(err, "failed to parse form body"), http.StatusBadRequest)
		return
	}

	payload := values.Get("payload")
	if payload == "" {
		h.writeError(w, r.Context(), goerr.New("payload not found"), http.StatusBadRequest)
		return
	}

	// Acknowledge receipt
	w.WriteHeader(http.StatusOK)

	async.Dispatch(r.Context(), func(ctx context.Context) error {
		if err := h.interactionHandler.HandleInteraction(ctx, []byte(payload)); err != nil {
			return goerr.Wrap(err, "failed to handle interaction")
		}
		return nil
	})
}

// verifySlackSignature verifies the Slack request signature
func (h *Handler) verifySlackSignature(r *http.Request, body []byte) error {
	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	if timestamp == "" {
		return goerr.New("missing timestamp header")
	}

	// Check timestamp to prevent replay attacks (5 minute window)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return goerr.Wrap(err, "invalid timestamp")
	}

	if abs(time.Now().Unix()-ts) > 60*5 {
		return goerr.New("timestamp too old")
	}

	signature := r.Header.Get("X-Slack-Signature")
	if signature == "" {
		return goerr.New("missing signature header")
	}

	baseString := fmt.Sprintf("v0:%s:%s", timestamp, string(body))
	mac := hmac.New(sha256.New, []byte(h.slackConfig.SigningSecret))
	mac.Write([]byte(baseString))
	expectedSignature := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSignature)) {
		return goerr.New("signature mismatch")
	}

	return nil
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, ctx context.Context, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// abs returns the absolute value of an int64
func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
