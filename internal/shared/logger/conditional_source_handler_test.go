package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionalSourceHandler(t *testing.T) {
	prod := []slog.Level{slog.LevelWarn, slog.LevelError}
	debug := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

	tests := []struct {
		name       string
		level      slog.Level
		levels     []slog.Level
		wantSource bool
	}{
		{"info in production", slog.LevelInfo, prod, false},
		{"warn in production", slog.LevelWarn, prod, true},
		{"error in production", slog.LevelError, prod, true},
		{"info in debug", slog.LevelInfo, debug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			log := slog.New(NewConditionalSourceHandler(base, tt.levels...))

			log.Log(context.Background(), tt.level, "member approved", "user_id", 501)

			out := buf.String()
			assert.Contains(t, out, "user_id=501")
			assert.Equal(t, tt.wantSource, strings.Contains(out, "source="), out)
			if tt.wantSource {
				assert.Contains(t, out, "conditional_source_handler_test.go")
			}
		})
	}
}

func TestConditionalSourceHandler_WithAttrsKeepsLevels(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	log := slog.New(NewConditionalSourceHandler(base, slog.LevelError)).With("component", "ledger")

	log.Error("sweep failed")

	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "source=")
}

func TestNopLogger(t *testing.T) {
	l := NewNop().Named("otp").With("user_id", 1)
	l.Infow("discarded", "k", "v")
	l.Errorw("discarded")
}
