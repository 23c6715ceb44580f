package logger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// logFileMode is the permission used for newly created log files.
	logFileMode os.FileMode = 0o644
	// logDirMode is the permission used when the log directory is missing.
	logDirMode os.FileMode = 0o755
)

// errEmptyLogPrefix is returned when no log file prefix is given.
var errEmptyLogPrefix = errors.New("log file prefix must be provided")

// DailyFilename returns the dated log filename, e.g. "dmg-installer-2024-05-01.log".
func DailyFilename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.log", prefix, now.Format(time.DateOnly))
}

// NewWithFile creates a logger that writes to stdout and appends the same
// lines, without colours, to a dated file inside dir.
// The returned function flushes and closes the file.
func NewWithFile(
	level zapcore.LevelEnabler,
	dir, prefix string,
	now time.Time,
	options ...zap.Option,
) (*zap.SugaredLogger, func() error, error) {
	if prefix == "" {
		return nil, nil, errEmptyLogPrefix
	}

	if level == nil {
		level = defaultLevel
	}

	if err := os.MkdirAll(filepath.Clean(dir), logDirMode); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(filepath.Clean(dir), DailyFilename(prefix, now))

	//nolint:gosec // The log path is built from trusted configuration.
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalColorLevelEncoder)),
		zapcore.AddSync(os.Stdout),
		level,
	)

	fileCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig(zapcore.CapitalLevelEncoder)),
		zapcore.AddSync(file),
		level,
	)

	l := zap.New(zapcore.NewTee(consoleCore, fileCore), options...).Sugar()

	closeFn := func() error {
		// Sync on stdout fails on some terminals; only the file matters here.
		_ = l.Sync()

		return file.Close()
	}

	return l, closeFn, nil
}
