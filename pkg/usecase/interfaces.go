package usecase

import (
	"context"

	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// TriageUseCase defines the operations the controllers drive
type TriageUseCase interface {
	// HandleIssueOpened runs the analysis pipeline for a new issue and
	// posts the approval request to Slack
	HandleIssueOpened(ctx context.Context, issue *model.Issue) (*model.TriageRecord, error)

	// HandleDecision applies a human decision to a pending triage.
	// Exactly one decision wins; later ones fail with ErrAlreadyDecided.
	HandleDecision(ctx context.Context, id types.TriageID, decision *model.Decision) (*model.TriageRecord, error)

	// ExpireTriage marks a pending triage as expired. A record that was
	// decided in the meantime is left untouched.
	ExpireTriage(ctx context.Context, id types.TriageID) error

	// GetTriageRecord fetches a record, used to build the edit modal
	GetTriageRecord(ctx context.Context, id types.TriageID) (*model.TriageRecord, error)

	// MarkWebhookReceived counts an accepted webhook delivery
	MarkWebhookReceived()

	// Stats returns service counters
	Stats(ctx context.Context) *model.Stats
}
