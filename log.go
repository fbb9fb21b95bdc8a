package trinity

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type ctxKey struct{}

var (
	slogCtxKey = ctxKey{}
)

func logger(ctx context.Context) *slog.Logger {
	val := ctx.Value(slogCtxKey)
	if val == nil {
		return slog.New(noopHandler{})
	}
	logger, ok := val.(*slog.Logger)
	if !ok {
		return slog.New(noopHandler{})
	}
	return logger
}

// LoggingContext returns a copy of ctx that carries logger. The Engine logs
// through the logger on the context it's handed, and logs nothing if there
// isn't one.
func LoggingContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, slogCtxKey, logger)
}

// compositionContext tags the context's logger with a fresh composition ID
// so every log line from one root invocation, nested loads included, can be
// correlated.
func compositionContext(ctx context.Context, name string) context.Context {
	return LoggingContext(ctx, logger(ctx).With(
		slog.String("composition", uuid.NewString()),
		slog.String("root_template", name),
	))
}

type noopHandler struct{}

func (noopHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (noopHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (n noopHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return n
}

func (n noopHandler) WithGroup(_ string) slog.Handler {
	return n
}
