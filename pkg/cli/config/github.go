package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	githubsvc "github.com/secmon-lab/shinobi/pkg/service/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub configuration
type GitHub struct {
	Token         string
	Repo          string
	WebhookSecret string
}

// Flags returns CLI flags for GitHub configuration
func (g *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub API token with issues write access",
			Category:    "GitHub",
			Sources:     cli.EnvVars("SHINOBI_GITHUB_TOKEN"),
			Destination: &g.Token,
		},
		&cli.StringFlag{
			Name:        "github-repo",
			Usage:       "Repository to triage in owner/name form",
			Category:    "GitHub",
			Sources:     cli.EnvVars("SHINOBI_GITHUB_REPO"),
			Destination: &g.Repo,
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "Secret for webhook signature verification",
			Category:    "GitHub",
			Sources:     cli.EnvVars("SHINOBI_GITHUB_WEBHOOK_SECRET"),
			Destination: &g.WebhookSecret,
		},
	}
}

// Validate checks the GitHub configuration is complete. The webhook
// secret is mandatory; the service refuses to start rather than accept
// unsigned webhook deliveries.
func (g *GitHub) Validate() error {
	if g.Token == "" {
		return goerr.New("GitHub token is required (SHINOBI_GITHUB_TOKEN)")
	}
	if g.Repo == "" {
		return goerr.New("GitHub repository is required (SHINOBI_GITHUB_REPO)")
	}
	if g.WebhookSecret == "" {
		return goerr.New("GitHub webhook secret is required (SHINOBI_GITHUB_WEBHOOK_SECRET)")
	}
	return nil
}

// RepoName returns the configured repository as a typed name
func (g *GitHub) RepoName() types.RepoName {
	return types.RepoName(g.Repo)
}

// Configure creates the GitHub issue client
func (g *GitHub) Configure() (*githubsvc.Client, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return githubsvc.New(g.Token, g.RepoName())
}

// LogValue returns structured log value
func (g GitHub) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_token", g.Token != ""),
		slog.String("repo", g.Repo),
		slog.Bool("has_webhook_secret", g.WebhookSecret != ""),
	)
}
