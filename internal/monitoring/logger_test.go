package monitoring

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	for _, tc := range []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	} {
		t.Run(tc.level, func(t *testing.T) {
			l, err := NewLogger(LogConfig{Level: tc.level, OutputPaths: []string{filepath.Join(t.TempDir(), "out.log")}})
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tc.want-1))
			}
		})
	}
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLogger_Development(t *testing.T) {
	cfg := DefaultLogConfig()
	cfg.Development = true
	cfg.OutputPaths = []string{filepath.Join(t.TempDir(), "dev.log")}
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.Equal(t, "console", encodingFormat(true))
	assert.Equal(t, "json", encodingFormat(false))
}

func TestSetLogger(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	// Default is a no-op logger, never nil.
	require.NotNil(t, Logger())

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	Logger().Info("hello")
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())

	SetLogger(nil)
	Logger().Info("dropped")
	assert.Equal(t, 0, logs.FilterMessage("dropped").Len())
}
