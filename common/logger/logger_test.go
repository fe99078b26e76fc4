package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConvertFields(t *testing.T) {
	fields := convertFields("tournament_id", "t-1", "count", 3, "dangling")

	require.Len(t, fields, 2)
	assert.Equal(t, "tournament_id", fields[0].Key)
	assert.Equal(t, "count", fields[1].Key)
}

func TestErrorsAreNamedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{zap: zap.New(core)}

	l.With("component", "scheduler").Error("sweep failed", "error", errors.New("timeout"))

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "scheduler", ctx["component"])
	assert.Equal(t, "timeout", ctx["error"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
