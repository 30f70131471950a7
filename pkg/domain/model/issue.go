package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// Issue is the subset of a GitHub issue the triage flow works on
type Issue struct {
	Repo   types.RepoName
	Number types.IssueNumber
	Title  string
	Body   string
	URL    string
}

// Validate checks the issue carries enough data to triage
func (i *Issue) Validate() error {
	if i.Repo == "" {
		return goerr.New("repository name is required")
	}
	if i.Number <= 0 {
		return goerr.New("issue number must be positive",
			goerr.V("number", i.Number))
	}
	if i.Title == "" {
		return goerr.New("issue title is required")
	}
	return nil
}

// TriageAnalysis is the LLM classification result for an issue
type TriageAnalysis struct {
	Severity types.Severity `json:"severity"`
	Summary  string         `json:"summary"`
}
