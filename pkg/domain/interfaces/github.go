package interfaces

import (
	"context"

	"github.com/secmon-lab/shinobi/pkg/domain/types"
)

// IssueClient is the subset of the GitHub issues API the service writes
// through. Implementations must not be called before a human decision
// is recorded.
type IssueClient interface {
	PostComment(ctx context.Context, number types.IssueNumber, body string) error
	AddLabel(ctx context.Context, number types.IssueNumber, label types.Severity) error
	AddDuplicateLabel(ctx context.Context, number types.IssueNumber) error
	CloseIssue(ctx context.Context, number types.IssueNumber, reason string) error
}
