package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/shinobi/pkg/domain/interfaces"
	"github.com/secmon-lab/shinobi/pkg/repository"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Firestore holds Firestore configuration
type Firestore struct {
	ProjectID  string
	DatabaseID string
}

// Flags returns CLI flags for Firestore configuration
func (f *Firestore) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "GCP project ID for Firestore",
			Category:    "Firestore",
			Sources:     cli.EnvVars("SHINOBI_FIRESTORE_PROJECT"),
			Destination: &f.ProjectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Category:    "Firestore",
			Value:       "(default)",
			Sources:     cli.EnvVars("SHINOBI_FIRESTORE_DATABASE"),
			Destination: &f.DatabaseID,
		},
	}
}

// Configure creates the triage record repository. Falls back to the
// in-memory store when Firestore is not configured.
func (f *Firestore) Configure(ctx context.Context) (interfaces.Repository, error) {
	logger := logging.From(ctx)

	if !f.IsConfigured() {
		logger.Warn("Using memory repository instead of Firestore. Triage records will be lost on shutdown")
		return repository.NewMemory(), nil
	}

	repo, err := repository.NewFirestore(ctx, f.ProjectID, f.DatabaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init firestore",
			goerr.V("project", f.ProjectID),
			goerr.V("database", f.DatabaseID),
		)
	}

	return repo, nil
}

// ConfigureVectorIndex creates the issue vector index. Falls back to
// the in-memory brute-force index when Firestore is not configured.
func (f *Firestore) ConfigureVectorIndex(ctx context.Context) (interfaces.VectorIndex, error) {
	logger := logging.From(ctx)

	if !f.IsConfigured() {
		logger.Warn("Using memory vector index instead of Firestore. The duplicate knowledge base will be lost on shutdown")
		return repository.NewMemoryVectorIndex(), nil
	}

	index, err := repository.NewFirestoreVectorIndex(ctx, f.ProjectID, f.DatabaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to init firestore vector index",
			goerr.V("project", f.ProjectID),
			goerr.V("database", f.DatabaseID),
		)
	}

	return index, nil
}

// IsConfigured checks if Firestore is properly configured
func (f *Firestore) IsConfigured() bool {
	return f.ProjectID != ""
}

// LogValue returns structured log value
func (f Firestore) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("project", f.ProjectID),
		slog.String("database", f.DatabaseID),
	)
}
