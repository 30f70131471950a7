package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// Repository defines the interface for triage record persistence
type Repository interface {
	// Triage record operations
	PutTriageRecord(ctx context.Context, record *model.TriageRecord) error
	GetTriageRecord(ctx context.Context, id types.TriageID) (*model.TriageRecord, error)
	ListTriageRecords(ctx context.Context, limit int) ([]*model.TriageRecord, error)

	// MarkDecided transitions a record from pending to the given decided
	// status. The transition is atomic; a record that is no longer
	// pending returns model.ErrAlreadyDecided. The updated record is
	// returned on success.
	MarkDecided(ctx context.Context, id types.TriageID, status types.TriageStatus, decidedBy types.SlackUserID, decidedAt time.Time) (*model.TriageRecord, error)

	// Audit log operations (append-only)
	PutAuditEntry(ctx context.Context, entry *model.AuditEntry) error
	ListAuditEntries(ctx context.Context, triageID types.TriageID) ([]*model.AuditEntry, error)

	// Close closes the repository connection
	Close() error
}

// VectorIndex defines the interface for the issue embedding store used
// by duplicate detection
type VectorIndex interface {
	Put(ctx context.Context, doc *model.IssueVector) error
	Search(ctx context.Context, embedding []float64, limit int) ([]*model.IssueMatch, error)
	Close() error
}
