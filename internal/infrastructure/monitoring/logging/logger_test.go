package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "k", Value: "v"}, String("k", "v"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "d", Value: time.Second}, Duration("d", time.Second))
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
}

func TestZapLoggerEmitsFields(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core)

	logger.Info("cache hit",
		String("query_hash", "abc123"),
		Int("access_count", 3),
		Bool("expired", false),
	)

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "cache hit", entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "abc123", ctx["query_hash"])
	assert.Equal(t, int64(3), ctx["access_count"])
	assert.Equal(t, false, ctx["expired"])
}

func TestWithAttachesFieldsToChildren(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromCore(core).With(String("component", "search"))

	logger.Warn("index degraded")
	logger.Debug("retrying")

	for _, e := range observed.All() {
		assert.Equal(t, "search", e.ContextMap()["component"])
	}
	require.Equal(t, 2, observed.Len())
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
}

func TestNewNopLoggerIsSilent(t *testing.T) {
	l := NewNopLogger()
	l.Info("ignored", String("k", "v"))
	l.Error("ignored")
	assert.NotPanics(t, func() { l.With(Int("n", 1)).Named("child").Debug("x") })
}
