package context

import (
	"context"

	"github.com/devmux/devmux/internal/logging"
)

type contextKey string

const loggerKey contextKey = "logger"

// WithLogger attaches logger to ctx so subcommands share one handler
// chain.
func WithLogger(ctx context.Context, logger *logging.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger returns the logger attached to ctx, or nil.
func Logger(ctx context.Context) *logging.Logger {
	if logger, ok := ctx.Value(loggerKey).(*logging.Logger); ok {
		return logger
	}
	return nil
}
