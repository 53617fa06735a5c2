package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	debug, err := New(Options{Level: "debug", Service: "jobberlab"})
	require.NoError(t, err)
	assert.True(t, debug.Core().Enabled(zapcore.DebugLevel))

	fallback, err := New(Options{Level: "loud", Format: "console"})
	require.NoError(t, err)
	assert.False(t, fallback.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, fallback.Core().Enabled(zapcore.InfoLevel))
}

func TestLogger_NopBeforeInit(t *testing.T) {
	if global.Load() != nil {
		t.Skip("global logger already set")
	}
	assert.False(t, Logger().Core().Enabled(zapcore.ErrorLevel))
}
