package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/chatrooms/config"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
		enabled zapcore.Level
	}{
		{"json info", "info", "json", false, zapcore.InfoLevel},
		{"default format", "warn", "", false, zapcore.WarnLevel},
		{"console debug", "DEBUG", "console", false, zapcore.DebugLevel},
		{"bad level", "loud", "json", true, 0},
		{"bad format", "info", "xml", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format, "test")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestInitSentry(t *testing.T) {
	t.Run("disabled without dsn", func(t *testing.T) {
		flush, err := InitSentry(config.ObservabilityConfig{}, "test", "dev")
		require.NoError(t, err)
		assert.NotPanics(t, flush)
	})

	t.Run("invalid dsn", func(t *testing.T) {
		flush, err := InitSentry(config.ObservabilityConfig{SentryDSN: "::not a dsn::"}, "test", "dev")
		assert.Error(t, err)
		assert.NotPanics(t, flush)
	})
}
