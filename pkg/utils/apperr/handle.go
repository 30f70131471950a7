package apperr

import (
	"context"

	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

// Handle logs an application error with the context logger
func Handle(ctx context.Context, err error) {
	logger := logging.From(ctx)
	logger.Error("application error", "error", err)
}
