// Package log builds the slog loggers used by the server and the CLI.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Level is read once at startup from config; Debug when empty or unknown.
var Level = log.DebugLevel

// SetLevel parses "debug", "info", "warn" or "error".
func SetLevel(s string) {
	if lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s))); err == nil {
		Level = lvl
	}
}

func NewHandler(name string) slog.Handler {
	return NewHandlerTo(os.Stderr, name)
}

// NewHandlerTo is NewHandler writing to w.
func NewHandlerTo(w io.Writer, name string) slog.Handler {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          name,
		Level:           Level,
	})
}

func New(name string) *slog.Logger {
	return slog.New(NewHandler(name))
}

func NewContext(ctx context.Context, name string) context.Context {
	return IntoContext(ctx, New(name))
}

type ctxKey struct{}

// IntoContext adds a logger to a context. Use FromContext to
// pull the logger out.
func IntoContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or the default slog logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}

// SubLogger derives a logger whose prefix is base's prefix plus "/suffix".
func SubLogger(base *slog.Logger, suffix string) *slog.Logger {
	if cl, ok := base.Handler().(*log.Logger); ok {
		prefix := cl.GetPrefix()
		if prefix != "" {
			prefix = prefix + "/" + suffix
		} else {
			prefix = suffix
		}
		return slog.New(cl.WithPrefix(prefix))
	}
	return slog.New(NewHandler(suffix))
}
