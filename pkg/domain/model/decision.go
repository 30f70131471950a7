package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// Decision captures a human approval or rejection of a pending triage.
// Severity, Summary and Comment are optional overrides entered through
// the edit modal; empty values mean "use what the AI proposed".
type Decision struct {
	Kind      types.DecisionKind
	Severity  types.Severity
	Summary   string
	Comment   string
	Modified  bool
	DecidedBy types.SlackUserID
}

// Validate checks the decision
func (d *Decision) Validate() error {
	if !d.Kind.IsValid() {
		return goerr.New("invalid decision kind", goerr.V("kind", d.Kind))
	}
	if d.DecidedBy == "" {
		return goerr.New("deciding user is required")
	}
	if d.Severity != "" && !d.Severity.IsValid() {
		return goerr.New("invalid severity override",
			goerr.V("severity", d.Severity))
	}
	return nil
}

// EffectiveSeverity returns the override severity if set, otherwise the
// record's AI-classified severity
func (d *Decision) EffectiveSeverity(r *TriageRecord) types.Severity {
	if d.Severity != "" {
		return d.Severity
	}
	return r.Severity
}

// EffectiveSummary returns the override summary if set
func (d *Decision) EffectiveSummary(r *TriageRecord) string {
	if d.Summary != "" {
		return d.Summary
	}
	return r.Summary
}

// EffectiveComment returns the override duplicate comment if set
func (d *Decision) EffectiveComment(r *TriageRecord) string {
	if d.Comment != "" {
		return d.Comment
	}
	if r.Duplicate != nil {
		return r.Duplicate.ProposedComment
	}
	return ""
}
