package interfaces

import (
	"context"

	"github.com/secmon-lab/shinobi/pkg/domain/model"
)

// Analyzer classifies issues and produces embeddings for duplicate
// detection. Implemented by the LLM service on top of gollem.
type Analyzer interface {
	// AnalyzeIssue returns the 5-level severity and a one-sentence summary
	AnalyzeIssue(ctx context.Context, issue *model.Issue) (*model.TriageAnalysis, error)

	// EmbedIssue embeds issue title+body for nearest-neighbor search
	EmbedIssue(ctx context.Context, title, body string) ([]float64, error)
}
