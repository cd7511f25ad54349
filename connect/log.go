package connect

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type logWriterKey struct{}

// WithLogWriter returns a new context carrying the given io.Writer for
// request-scoped logging. cmd/loomd installs one at startup and builds its
// router's logger from it with Logger.
func WithLogWriter(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, logWriterKey{}, w)
}

// LogWriter returns an io.Writer for log output. Outside of a request
// scope it returns os.Stdout.
func LogWriter(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(logWriterKey{}).(io.Writer); ok && w != nil {
		return w
	}
	return os.Stdout
}

// Logger returns a structured logger writing text lines to the context's
// log writer. A router logs through it once it is installed with
// SetLogger:
//
//	rt.SetLogger(connect.Logger(ctx))
func Logger(ctx context.Context) *slog.Logger {
	return slog.New(slog.NewTextHandler(LogWriter(ctx), nil))
}
