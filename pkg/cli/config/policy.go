package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Policy holds the triage policy file configuration
type Policy struct {
	Path string
}

// Flags returns CLI flags for Policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to triage policy YAML (threshold, candidate limit, approval timeout)",
			Category:    "Triage",
			Sources:     cli.EnvVars("SHINOBI_POLICY"),
			Destination: &p.Path,
		},
	}
}

// Configure loads the triage policy, using built-in defaults when no
// file is given
func (p *Policy) Configure(ctx context.Context) (*model.Policy, error) {
	if p.Path == "" {
		logging.From(ctx).Debug("No policy file given, using default triage policy")
		return model.DefaultPolicy(), nil
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read policy file",
			goerr.V("path", p.Path))
	}

	policy, err := model.ParsePolicy(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse policy file",
			goerr.V("path", p.Path))
	}

	return policy, nil
}

// LogValue returns structured log value
func (p Policy) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", p.Path),
	)
}
