package backend

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/net/context"
)

type logCtxKey int

const logCtx logCtxKey = 0
const logFlags = log.LstdFlags | log.LUTC

// Logger returns the logger scoped to ctx, or a process-wide fallback when
// the context carries none.
func Logger(ctx context.Context) *log.Logger {
	if logger, ok := ctx.Value(logCtx).(*log.Logger); ok {
		return logger
	}
	return log.New(os.Stderr, "[netwrok] ", logFlags)
}

func LoggingContext(parent context.Context, prefix string) context.Context {
	logger := log.New(os.Stderr, prefix, logFlags)
	return context.WithValue(parent, logCtx, logger)
}

// SessionLoggingContext scopes the logger to one connection.
func SessionLoggingContext(parent context.Context, connID string) context.Context {
	return LoggingContext(parent, fmt.Sprintf("[%s] ", connID))
}
