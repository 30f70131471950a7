package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// AuditEntry records one decision on a triage record. Entries are
// append-only; exactly one entry exists per decided record.
type AuditEntry struct {
	ID        types.AuditID
	TriageID  types.TriageID
	Repo      types.RepoName
	Number    types.IssueNumber
	Status    types.TriageStatus
	DecidedBy types.SlackUserID
	Actions   []string
	Note      string
	CreatedAt time.Time
}

// NewAuditEntry creates an audit entry for a decided triage record
func NewAuditEntry(r *TriageRecord, actions []string, note string) (*AuditEntry, error) {
	if r == nil {
		return nil, goerr.New("triage record is nil")
	}
	if !r.Status.IsDecided() {
		return nil, goerr.New("cannot audit an undecided record",
			goerr.V("status", r.Status))
	}

	return &AuditEntry{
		ID:        types.NewAuditID(),
		TriageID:  r.ID,
		Repo:      r.Repo,
		Number:    r.Number,
		Status:    r.Status,
		DecidedBy: r.DecidedBy,
		Actions:   actions,
		Note:      note,
		CreatedAt: time.Now(),
	}, nil
}

// Validate checks the audit entry
func (e *AuditEntry) Validate() error {
	if e.ID == "" {
		return goerr.New("audit entry ID is required")
	}
	if e.TriageID == "" {
		return goerr.New("triage ID is required")
	}
	if !e.Status.IsDecided() {
		return goerr.New("audit entry requires a decided status",
			goerr.V("status", e.Status))
	}
	return nil
}
