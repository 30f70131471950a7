package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
)

func TestDefaultPolicy(t *testing.T) {
	policy := model.DefaultPolicy()

	gt.NoError(t, policy.Validate())
	gt.Equal(t, 0.85, policy.SimilarityThreshold)
	gt.Equal(t, 5, policy.CandidateLimit)
	gt.Equal(t, time.Hour, policy.ApprovalTimeout.Duration())
}

func TestParsePolicy(t *testing.T) {
	t.Run("Full policy", func(t *testing.T) {
		data := []byte(`
similarity_threshold: 0.9
candidate_limit: 10
approval_timeout: 30m
`)
		policy := gt.R1(model.ParsePolicy(data)).NoError(t)

		gt.Equal(t, 0.9, policy.SimilarityThreshold)
		gt.Equal(t, 10, policy.CandidateLimit)
		gt.Equal(t, 30*time.Minute, policy.ApprovalTimeout.Duration())
	})

	t.Run("Omitted fields fall back to defaults", func(t *testing.T) {
		policy := gt.R1(model.ParsePolicy([]byte(`approval_timeout: 2h`))).NoError(t)

		gt.Equal(t, 0.85, policy.SimilarityThreshold)
		gt.Equal(t, 5, policy.CandidateLimit)
		gt.Equal(t, 2*time.Hour, policy.ApprovalTimeout.Duration())
	})

	t.Run("Empty document is the default policy", func(t *testing.T) {
		policy := gt.R1(model.ParsePolicy([]byte(""))).NoError(t)
		gt.Equal(t, *model.DefaultPolicy(), *policy)
	})

	t.Run("Invalid duration fails", func(t *testing.T) {
		_, err := model.ParsePolicy([]byte(`approval_timeout: soon`))
		gt.Error(t, err)
	})

	t.Run("Threshold above one fails", func(t *testing.T) {
		_, err := model.ParsePolicy([]byte(`similarity_threshold: 1.5`))
		gt.Error(t, err)
	})

	t.Run("Negative candidate limit fails", func(t *testing.T) {
		_, err := model.ParsePolicy([]byte(`candidate_limit: -1`))
		gt.Error(t, err)
	})

	t.Run("Malformed YAML fails", func(t *testing.T) {
		_, err := model.ParsePolicy([]byte("similarity_threshold: [0.9"))
		gt.Error(t, err)
	})
}
