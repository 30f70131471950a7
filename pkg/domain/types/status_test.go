package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

func TestTriageStatus(t *testing.T) {
	t.Run("Pending is valid but not decided", func(t *testing.T) {
		gt.True(t, types.TriageStatusPending.IsValid())
		gt.False(t, types.TriageStatusPending.IsDecided())
	})

	t.Run("Terminal states are decided", func(t *testing.T) {
		for _, s := range []types.TriageStatus{
			types.TriageStatusApproved,
			types.TriageStatusRejected,
			types.TriageStatusExpired,
		} {
			gt.True(t, s.IsValid())
			gt.True(t, s.IsDecided())
		}
	})

	t.Run("Unknown status is neither", func(t *testing.T) {
		gt.False(t, types.TriageStatus("done").IsValid())
		gt.False(t, types.TriageStatus("done").IsDecided())
	})
}

func TestDecisionKind(t *testing.T) {
	gt.True(t, types.DecisionApprove.IsValid())
	gt.True(t, types.DecisionReject.IsValid())
	gt.False(t, types.DecisionKind("defer").IsValid())

	gt.Equal(t, types.TriageStatusApproved, types.DecisionApprove.Status())
	gt.Equal(t, types.TriageStatusRejected, types.DecisionReject.Status())
}
