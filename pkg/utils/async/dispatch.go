package async

import (
	"context"
	"runtime/debug"

	"github.com/m-mizutani/ctxlog"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

// Handler is a function executed asynchronously
type Handler func(ctx context.Context) error

// NewBackgroundContext builds a detached context for async work. The
// request context is usually canceled as soon as the HTTP response is
// written, so handlers run on a fresh background context that keeps
// only the logger of the original one.
func NewBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), logging.From(ctx))
}

// Dispatch runs the handler on a new goroutine with a detached context.
// Panics are recovered and logged so a misbehaving handler cannot take
// the process down.
func Dispatch(ctx context.Context, handler Handler) {
	bgCtx := NewBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger := logging.From(bgCtx)
				logger.Error("Panic in async handler",
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if err := handler(bgCtx); err != nil {
			logger := logging.From(bgCtx)
			logger.Error("Async handler failed", "error", err)
		}
	}()
}
