package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

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
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestDailyFilename checks the date suffix of log files.
func TestDailyFilename(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 23, 59, 0, 0, time.UTC)
	require.Equal(t, "dmg-installer-2024-05-01.log", DailyFilename("dmg-installer", now))
}

// TestNewWithFile ensures lines are appended to the dated file with a severity tag.
func TestNewWithFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)

	l, closeFn, err := NewWithFile(zapcore.DebugLevel, dir, "installer", now)
	require.NoError(t, err)

	l.Infow("Download finished", "size", "1 MB")
	l.Error("Checksum mismatch")
	require.NoError(t, closeFn())

	// A second logger for the same day appends instead of truncating.
	l, closeFn, err = NewWithFile(zapcore.DebugLevel, dir, "installer", now)
	require.NoError(t, err)

	l.Info("Second run")
	require.NoError(t, closeFn())

	contents, err := os.ReadFile(filepath.Join(dir, "installer-2024-05-01.log"))
	require.NoError(t, err)

	text := string(contents)
	require.Contains(t, text, "INFO")
	require.Contains(t, text, "Download finished")
	require.Contains(t, text, "ERROR")
	require.Contains(t, text, "Checksum mismatch")
	require.Contains(t, text, "Second run")
	require.NotContains(t, text, "\x1b[", "file output must not carry colour codes")
}

// TestNewWithFileRequiresPrefix rejects an empty prefix.
func TestNewWithFileRequiresPrefix(t *testing.T) {
	t.Parallel()

	_, _, err := NewWithFile(nil, t.TempDir(), "", time.Now())
	require.ErrorIs(t, err, errEmptyLogPrefix)
}

// TestContextHelpers verifies that scoped loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "installer")
	ctx = WithKV(ctx, "run", 1)

	InfoKV(ctx, "Resolved download URL", "url", "https://example.com/a.dmg")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "installer", entries[0].LoggerName)
	require.Equal(t, "Resolved download URL", entries[0].Message)
	require.Equal(t, int64(1), entries[0].ContextMap()["run"])
}

// TestFromContextFallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithLevel drops entries below the floor.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core, WithLevel(zapcore.WarnLevel)).Sugar()

	l.Info("hidden")
	l.With("k", "v").Warn("shown")

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "shown", logs.All()[0].Message)
}

// TestSetLevelMovesFileLoggers checks that loggers built on the shared level follow SetLevel.
// It does not run in parallel because it changes the global level.
func TestSetLevelMovesFileLoggers(t *testing.T) {
	t.Cleanup(func() { SetLevel(zapcore.InfoLevel) })

	dir := t.TempDir()
	now := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)

	l, closeFn, err := NewWithFile(AtomicLevel(), dir, "installer", now)
	require.NoError(t, err)

	SetLevel(zapcore.InfoLevel)
	l.Debug("before raising verbosity")

	SetLevel(zapcore.DebugLevel)
	require.True(t, Logger().Desugar().Core().Enabled(zapcore.DebugLevel))
	l.Debug("after raising verbosity")

	require.NoError(t, closeFn())

	contents, err := os.ReadFile(filepath.Join(dir, "installer-2024-05-02.log"))
	require.NoError(t, err)
	require.NotContains(t, string(contents), "before raising verbosity")
	require.Contains(t, string(contents), "after raising verbosity")
}
