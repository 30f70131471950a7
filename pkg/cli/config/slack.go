package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Slack holds Slack configuration
type Slack struct {
	OAuthToken    string
	SigningSecret string
	Channel       string
}

// Flags returns CLI flags for Slack configuration
func (s *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-oauth-token",
			Usage:       "Slack OAuth token for API access",
			Category:    "Slack",
			Sources:     cli.EnvVars("SHINOBI_SLACK_OAUTH_TOKEN"),
			Destination: &s.OAuthToken,
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack signing secret for request verification",
			Category:    "Slack",
			Sources:     cli.EnvVars("SHINOBI_SLACK_SIGNING_SECRET"),
			Destination: &s.SigningSecret,
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID receiving triage approval requests",
			Category:    "Slack",
			Sources:     cli.EnvVars("SHINOBI_SLACK_CHANNEL"),
			Destination: &s.Channel,
		},
	}
}

// Validate checks the Slack configuration is complete. The signing
// secret is mandatory; unverifiable interaction callbacks must never
// be accepted.
func (s *Slack) Validate() error {
	if s.OAuthToken == "" {
		return goerr.New("Slack OAuth token is required (SHINOBI_SLACK_OAUTH_TOKEN)")
	}
	if s.SigningSecret == "" {
		return goerr.New("Slack signing secret is required (SHINOBI_SLACK_SIGNING_SECRET)")
	}
	if s.Channel == "" {
		return goerr.New("Slack triage channel is required (SHINOBI_SLACK_CHANNEL)")
	}
	return nil
}

// ChannelID returns the triage channel as a typed ID
func (s *Slack) ChannelID() types.ChannelID {
	return types.ChannelID(s.Channel)
}

// LogValue returns structured log value
func (s Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_oauth_token", s.OAuthToken != ""),
		slog.Bool("has_signing_secret", s.SigningSecret != ""),
		slog.String("channel", s.Channel),
	)
}
