package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// DuplicateMatch references a prior issue flagged as a semantic duplicate
type DuplicateMatch struct {
	IssueNumber     types.IssueNumber
	Similarity      float64
	ProposedComment string
}

// TriageRecord associates a GitHub issue with its triage outcome.
// One record is created per received issue event and is never deleted;
// the set of records forms the audit trail of what the service saw.
type TriageRecord struct {
	ID     types.TriageID
	Repo   types.RepoName
	Number types.IssueNumber

	IssueTitle string
	IssueBody  string
	IssueURL   string

	Severity  types.Severity
	Summary   string
	Duplicate *DuplicateMatch

	// Embedding is retained until a decision so an approved issue can
	// be indexed for future duplicate checks without re-embedding
	Embedding []float64

	Status types.TriageStatus

	// Slack message that carries the approval buttons
	SlackChannelID types.ChannelID
	SlackMessageTS types.MessageTS

	CreatedAt time.Time
	ExpiresAt time.Time
	DecidedBy types.SlackUserID
	DecidedAt time.Time
}

// NewTriageRecord creates a pending triage record for an analyzed issue
func NewTriageRecord(issue *Issue, analysis *TriageAnalysis, dup *DuplicateMatch, ttl time.Duration) (*TriageRecord, error) {
	if issue == nil {
		return nil, goerr.New("issue is nil")
	}
	if err := issue.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid issue")
	}
	if analysis == nil {
		return nil, goerr.New("analysis is nil")
	}
	if !analysis.Severity.IsValid() {
		return nil, goerr.New("invalid severity",
			goerr.V("severity", analysis.Severity))
	}
	if ttl <= 0 {
		return nil, goerr.New("approval TTL must be positive",
			goerr.V("ttl", ttl))
	}

	now := time.Now()
	return &TriageRecord{
		ID:         types.NewTriageID(),
		Repo:       issue.Repo,
		Number:     issue.Number,
		IssueTitle: issue.Title,
		IssueBody:  issue.Body,
		IssueURL:   issue.URL,
		Severity:   analysis.Severity,
		Summary:    analysis.Summary,
		Duplicate:  dup,
		Status:     types.TriageStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}, nil
}

// IsDuplicate returns true if the record carries a duplicate match
func (r *TriageRecord) IsDuplicate() bool {
	return r.Duplicate != nil
}

// Validate checks record consistency
func (r *TriageRecord) Validate() error {
	if r.ID == "" {
		return goerr.New("triage record ID is required")
	}
	if r.Repo == "" {
		return goerr.New("repository name is required")
	}
	if r.Number <= 0 {
		return goerr.New("issue number must be positive")
	}
	if !r.Status.IsValid() {
		return goerr.New("invalid triage status", goerr.V("status", r.Status))
	}
	if r.Duplicate != nil && r.Duplicate.IssueNumber <= 0 {
		return goerr.New("duplicate match must reference a prior issue")
	}
	return nil
}
