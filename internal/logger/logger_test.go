package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		" ERROR ": zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_ScopesFields checks that fields attached to the context appear on every entry.
func TestWithKV_ScopesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(WithKV(ctx, "binary", "shurikenctl"), "relocator")

	Status(ctx, "Copying", "a -> b")
	WarnKV(ctx, "fallback", "reason", "missing")

	entries := logs.All()
	require.Len(t, entries, 2)
	require.Equal(t, "relocator", entries[0].LoggerName)
	require.Equal(t, "     Copying a -> b", entries[0].Message)
	require.Equal(t, "shurikenctl", entries[0].ContextMap()["binary"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "missing", entries[1].ContextMap()["reason"])
}

// TestNewWithWriter writes through the console encoder into the provided writer.
func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithWriter(&buf, zapcore.InfoLevel)
	l.Debug("hidden")
	l.Info("visible")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "visible")
}
