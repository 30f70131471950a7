package github_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	githubctrl "github.com/secmon-lab/shinobi/pkg/controller/github"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

const testSecret = "webhook-secret"

type fakeTriage struct {
	mu       sync.Mutex
	issues   []*model.Issue
	received int
	notify   chan struct{}
}

func newFakeTriage() *fakeTriage {
	return &fakeTriage{notify: make(chan struct{}, 16)}
}

func (f *fakeTriage) HandleIssueOpened(ctx context.Context, issue *model.Issue) (*model.TriageRecord, error) {
	f.mu.Lock()
	f.issues = append(f.issues, issue)
	f.mu.Unlock()
	f.notify <- struct{}{}
	return &model.TriageRecord{ID: types.NewTriageID()}, nil
}

func (f *fakeTriage) HandleDecision(ctx context.Context, id types.TriageID, decision *model.Decision) (*model.TriageRecord, error) {
	return nil, nil
}

func (f *fakeTriage) ExpireTriage(ctx context.Context, id types.TriageID) error { return nil }

func (f *fakeTriage) GetTriageRecord(ctx context.Context, id types.TriageID) (*model.TriageRecord, error) {
	return nil, model.ErrTriageNotFound
}

func (f *fakeTriage) MarkWebhookReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received++
}

func (f *fakeTriage) Stats(ctx context.Context) *model.Stats { return &model.Stats{} }

func (f *fakeTriage) issueCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.issues)
}

func (f *fakeTriage) waitForIssue(t *testing.T) *model.Issue {
	t.Helper()
	select {
	case <-f.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("issue was not processed in time")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issues[len(f.issues)-1]
}

func issuesPayload(action string) []byte {
	payload := map[string]any{
		"action": action,
		"issue": map[string]any{
			"number":   42,
			"title":    "Crash on save",
			"body":     "Saving settings crashes the app.",
			"html_url": "https://github.com/acme/widgets/issues/42",
		},
		"repository": map[string]any{
			"full_name": "acme/widgets",
		},
	}
	raw, _ := json.Marshal(payload)
	return raw
}

func signedRequest(t *testing.T, eventType, deliveryID string, payload []byte) *http.Request {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/hooks/github/event", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-GitHub-Delivery", deliveryID)

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(payload)
	req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))

	return req
}

func newHandler(t *testing.T, uc *fakeTriage) *githubctrl.Handler {
	t.Helper()
	handler := gt.R1(githubctrl.NewHandler(context.Background(), uc, testSecret)).NoError(t)
	t.Cleanup(handler.Close)
	return handler
}

func TestNewHandler(t *testing.T) {
	t.Run("Empty webhook secret is refused", func(t *testing.T) {
		_, err := githubctrl.NewHandler(context.Background(), newFakeTriage(), "")
		gt.Error(t, err)
	})
}

func TestHandleWebhook(t *testing.T) {
	t.Run("Opened issue is accepted and processed", func(t *testing.T) {
		uc := newFakeTriage()
		handler := newHandler(t, uc)

		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, signedRequest(t, "issues", "delivery-1", issuesPayload("opened")))

		gt.Equal(t, http.StatusOK, rec.Code)

		issue := uc.waitForIssue(t)
		gt.Equal(t, types.RepoName("acme/widgets"), issue.Repo)
		gt.Equal(t, types.IssueNumber(42), issue.Number)
		gt.Equal(t, "Crash on save", issue.Title)
		gt.Equal(t, 1, uc.received)
	})

	t.Run("Invalid signature is rejected before processing", func(t *testing.T) {
		uc := newFakeTriage()
		handler := newHandler(t, uc)

		req := signedRequest(t, "issues", "delivery-2", issuesPayload("opened"))
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(make([]byte, 32)))

		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, req)

		gt.Equal(t, http.StatusUnauthorized, rec.Code)
		gt.Equal(t, 0, uc.received)
		gt.Equal(t, 0, uc.issueCount())
	})

	t.Run("Missing signature is rejected", func(t *testing.T) {
		uc := newFakeTriage()
		handler := newHandler(t, uc)

		req := signedRequest(t, "issues", "delivery-3", issuesPayload("opened"))
		req.Header.Del("X-Hub-Signature-256")

		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, req)

		gt.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Non-opened actions are ignored", func(t *testing.T) {
		uc := newFakeTriage()
		handler := newHandler(t, uc)

		for _, action := range []string{"closed", "edited", "labeled"} {
			rec := httptest.NewRecorder()
			handler.HandleWebhook(rec, signedRequest(t, "issues", "delivery-"+action, issuesPayload(action)))
			gt.Equal(t, http.StatusOK, rec.Code)
		}

		gt.Equal(t, 0, uc.issueCount())
		gt.Equal(t, 3, uc.received)
	})

	t.Run("Redelivered event is processed once", func(t *testing.T) {
		uc := newFakeTriage()
		handler := newHandler(t, uc)

		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, signedRequest(t, "issues", "delivery-dup", issuesPayload("opened")))
		gt.Equal(t, http.StatusOK, rec.Code)
		uc.waitForIssue(t)

		rec = httptest.NewRecorder()
		handler.HandleWebhook(rec, signedRequest(t, "issues", "delivery-dup", issuesPayload("opened")))
		gt.Equal(t, http.StatusOK, rec.Code)

		// Give any stray async work a moment, then confirm single run
		time.Sleep(50 * time.Millisecond)
		gt.Equal(t, 1, uc.issueCount())
	})

	t.Run("Ping event is acknowledged", func(t *testing.T) {
		uc := newFakeTriage()
		handler := newHandler(t, uc)

		payload := []byte(`{"zen": "Keep it logically awesome.", "hook_id": 1}`)
		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, signedRequest(t, "ping", "delivery-ping", payload))

		gt.Equal(t, http.StatusOK, rec.Code)
		gt.Equal(t, 0, uc.issueCount())
	})
}
