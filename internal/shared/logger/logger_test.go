package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uniedit/photos/internal/utils/requestctx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewZapLogger(t *testing.T) {
	t.Run("creates with default config", func(t *testing.T) {
		l, err := NewZapLogger(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})

	t.Run("writes json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := NewZapLogger(&Config{Level: "info", Format: "json", Output: buf})
		require.NoError(t, err)

		l.Info("test message", zap.String("key", "value"))
		require.NoError(t, l.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "test message", entry["msg"])
		assert.Equal(t, "value", entry["key"])
		assert.Equal(t, "info", entry["level"])
	})

	t.Run("writes console format", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := NewZapLogger(&Config{Level: "info", Format: "console", Output: buf})
		require.NoError(t, err)

		l.Info("test message")
		output := buf.String()
		assert.Contains(t, output, "test message")
		assert.False(t, strings.HasPrefix(output, "{"))
	})

	t.Run("filters below level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := NewZapLogger(&Config{Level: "warn", Output: buf})
		require.NoError(t, err)

		l.Info("hidden")
		assert.Empty(t, buf.String())
		l.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel}, // default
		{"", zapcore.InfoLevel},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestLogger_Context(t *testing.T) {
	t.Run("ContextWithLogger and FromContext", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l, err := NewZapLogger(&Config{Level: "info", Output: buf})
		require.NoError(t, err)

		ctx := ContextWithLogger(context.Background(), l)
		ctx = requestctx.WithRequestID(ctx, "req-1")
		ctx = requestctx.WithAccountID(ctx, "acc-1")
		FromContext(ctx).Info("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "req-1", entry["request_id"])
		assert.Equal(t, "acc-1", entry["account_id"])
	})

	t.Run("FromContext returns nop when not set", func(t *testing.T) {
		l := FromContext(context.Background())
		assert.NotNil(t, l)
	})
}
