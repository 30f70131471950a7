package github

import (
	"context"
	"strings"
	"time"

	"github.com/Songmu/retry"
	"github.com/google/go-github/v72/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

const (
	// DuplicateLabel is applied to issues closed as duplicates
	DuplicateLabel      = "duplicate"
	duplicateLabelColor = "cccccc"

	// GitHub writes are retried a few times; issue mutations are
	// idempotent enough that a repeat is harmless
	retryCount    = 3
	retryInterval = 2 * time.Second
)

// Client writes triage outcomes back to a single GitHub repository
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// New creates a GitHub issue client for the given "owner/name"
// repository
func New(token string, repoName types.RepoName) (*Client, error) {
	if token == "" {
		return nil, goerr.New("GitHub token is required")
	}

	owner, repo, err := splitRepo(repoName)
	if err != nil {
		return nil, err
	}

	return &Client{
		gh:    github.NewClient(nil).WithAuthToken(token),
		owner: owner,
		repo:  repo,
	}, nil
}

// NewWithClient creates a Client with a prepared go-github client.
// Used by tests to point at a local server.
func NewWithClient(gh *github.Client, repoName types.RepoName) (*Client, error) {
	owner, repo, err := splitRepo(repoName)
	if err != nil {
		return nil, err
	}
	return &Client{gh: gh, owner: owner, repo: repo}, nil
}

func splitRepo(repoName types.RepoName) (string, string, error) {
	parts := strings.Split(string(repoName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", goerr.New("repository must be in owner/name form",
			goerr.V("repo", repoName))
	}
	return parts[0], parts[1], nil
}

// PostComment posts a comment on an issue
func (c *Client) PostComment(ctx context.Context, number types.IssueNumber, body string) error {
	if body == "" {
		return goerr.New("comment body is empty")
	}

	err := retry.Retry(retryCount, retryInterval, func() error {
		_, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, number.Int(), &github.IssueComment{
			Body: github.Ptr(body),
		})
		return err
	})
	if err != nil {
		return goerr.Wrap(err, "failed to post issue comment",
			goerr.V("repo", c.owner+"/"+c.repo),
			goerr.V("number", number))
	}

	return nil
}

// AddLabel applies a severity label to an issue, creating the label in
// the repository with its standard color if it does not exist yet
func (c *Client) AddLabel(ctx context.Context, number types.IssueNumber, severity types.Severity) error {
	if !severity.IsValid() {
		return goerr.New("invalid severity", goerr.V("severity", severity))
	}

	if err := c.ensureLabel(ctx, severity.Label(), severity.LabelColor()); err != nil {
		return err
	}

	return c.addLabel(ctx, number, severity.Label())
}

// AddDuplicateLabel applies the duplicate label to an issue
func (c *Client) AddDuplicateLabel(ctx context.Context, number types.IssueNumber) error {
	if err := c.ensureLabel(ctx, DuplicateLabel, duplicateLabelColor); err != nil {
		return err
	}
	return c.addLabel(ctx, number, DuplicateLabel)
}

// CloseIssue closes an issue with the given state reason (for
// duplicates this is "not_planned")
func (c *Client) CloseIssue(ctx context.Context, number types.IssueNumber, reason string) error {
	req := &github.IssueRequest{
		State: github.Ptr("closed"),
	}
	if reason != "" {
		req.StateReason = github.Ptr(reason)
	}

	err := retry.Retry(retryCount, retryInterval, func() error {
		_, _, err := c.gh.Issues.Edit(ctx, c.owner, c.repo, number.Int(), req)
		return err
	})
	if err != nil {
		return goerr.Wrap(err, "failed to close issue",
			goerr.V("repo", c.owner+"/"+c.repo),
			goerr.V("number", number))
	}

	return nil
}

func (c *Client) addLabel(ctx context.Context, number types.IssueNumber, label string) error {
	err := retry.Retry(retryCount, retryInterval, func() error {
		_, _, err := c.gh.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, number.Int(), []string{label})
		return err
	})
	if err != nil {
		return goerr.Wrap(err, "failed to add label to issue",
			goerr.V("repo", c.owner+"/"+c.repo),
			goerr.V("number", number),
			goerr.V("label", label))
	}

	return nil
}

// ensureLabel creates the label in the repository if missing. Creation
// races with other processes are fine since AddLabelsToIssue accepts an
// already-existing label.
func (c *Client) ensureLabel(ctx context.Context, name, color string) error {
	_, resp, err := c.gh.Issues.GetLabel(ctx, c.owner, c.repo, name)
	if err == nil {
		return nil
	}
	if resp == nil || resp.StatusCode != 404 {
		return goerr.Wrap(err, "failed to look up label",
			goerr.V("label", name))
	}

	_, _, err = c.gh.Issues.CreateLabel(ctx, c.owner, c.repo, &github.Label{
		Name:  github.Ptr(name),
		Color: github.Ptr(color),
	})
	if err != nil {
		// Another writer may have created it first
		logging.From(ctx).Debug("Label creation failed, assuming it exists",
			"label", name,
			"error", err,
		)
	}

	return nil
}

var _ interfaces.IssueClient = (*Client)(nil)
