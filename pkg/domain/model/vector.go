package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// IssueVector is an embedded issue stored in the vector index for
// duplicate detection. Issues are indexed only after a human approved
// them as non-duplicates.
type IssueVector struct {
	Repo      types.RepoName
	Number    types.IssueNumber
	Title     string
	Embedding []float64
	IndexedAt time.Time
}

// Validate checks the vector document
func (v *IssueVector) Validate() error {
	if v.Repo == "" {
		return goerr.New("repository name is required")
	}
	if v.Number <= 0 {
		return goerr.New("issue number must be positive")
	}
	if len(v.Embedding) == 0 {
		return goerr.New("embedding is empty")
	}
	return nil
}

// Key returns the document key for the vector, unique per issue.
// Slashes in the repository name are replaced so the key is usable as
// a Firestore document ID.
func (v *IssueVector) Key() string {
	repo := strings.ReplaceAll(string(v.Repo), "/", "_")
	return fmt.Sprintf("%s#%d", repo, v.Number)
}

// IssueMatch is a nearest-neighbor result from the vector index
type IssueMatch struct {
	Repo       types.RepoName
	Number     types.IssueNumber
	Title      string
	Similarity float64
}
