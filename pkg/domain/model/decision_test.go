package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

func TestDecisionValidate(t *testing.T) {
	t.Run("Plain approval passes", func(t *testing.T) {
		d := &model.Decision{Kind: types.DecisionApprove, DecidedBy: "U123"}
		gt.NoError(t, d.Validate())
	})

	t.Run("Unknown kind fails", func(t *testing.T) {
		d := &model.Decision{Kind: "defer", DecidedBy: "U123"}
		gt.Error(t, d.Validate())
	})

	t.Run("Missing user fails", func(t *testing.T) {
		d := &model.Decision{Kind: types.DecisionReject}
		gt.Error(t, d.Validate())
	})

	t.Run("Invalid severity override fails", func(t *testing.T) {
		d := &model.Decision{Kind: types.DecisionApprove, DecidedBy: "U123", Severity: "catastrophic"}
		gt.Error(t, d.Validate())
	})
}

func TestDecisionOverrides(t *testing.T) {
	dup := &model.DuplicateMatch{
		IssueNumber:     17,
		Similarity:      0.91,
		ProposedComment: "Looks like a duplicate of #17.",
	}
	record := gt.R1(model.NewTriageRecord(testIssue(), testAnalysis(), dup, time.Hour)).NoError(t)

	t.Run("Empty overrides fall through to the record", func(t *testing.T) {
		d := &model.Decision{Kind: types.DecisionApprove, DecidedBy: "U123"}

		gt.Equal(t, types.SeverityHigh, d.EffectiveSeverity(record))
		gt.Equal(t, record.Summary, d.EffectiveSummary(record))
		gt.Equal(t, dup.ProposedComment, d.EffectiveComment(record))
	})

	t.Run("Set overrides win", func(t *testing.T) {
		d := &model.Decision{
			Kind:      types.DecisionApprove,
			DecidedBy: "U123",
			Severity:  types.SeverityCritical,
			Summary:   "Actually a data loss bug.",
			Comment:   "Closing as duplicate, see #17.",
			Modified:  true,
		}

		gt.Equal(t, types.SeverityCritical, d.EffectiveSeverity(record))
		gt.Equal(t, "Actually a data loss bug.", d.EffectiveSummary(record))
		gt.Equal(t, "Closing as duplicate, see #17.", d.EffectiveComment(record))
	})

	t.Run("No duplicate means no default comment", func(t *testing.T) {
		plain := gt.R1(model.NewTriageRecord(testIssue(), testAnalysis(), nil, time.Hour)).NoError(t)
		d := &model.Decision{Kind: types.DecisionApprove, DecidedBy: "U123"}
		gt.Equal(t, "", d.EffectiveComment(plain))
	})
}
