package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/timeclock/log"
)

func TestSubLogger_Prefix(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(log.NewHandlerTo(&buf, "timeclock"))

	log.SubLogger(base, "api").Info("listening", "addr", ":8080")

	assert.Contains(t, buf.String(), "timeclock/api")
	assert.Contains(t, buf.String(), "listening")
	assert.Contains(t, buf.String(), ":8080")
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), log.FromContext(context.Background()))

	l := log.New("x")
	ctx := log.IntoContext(context.Background(), l)
	assert.Same(t, l, log.FromContext(ctx))
}
