package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// setupLogger builds the application logger: human-readable output on
// stderr plus a JSON debug log under logDir for post-mortems. The
// returned closer flushes and closes the file sink.
func setupLogger(logDir string, verbose bool) (*slog.Logger, func(), error) {
	consoleLevel := slog.LevelWarn
	if verbose {
		consoleLevel = slog.LevelInfo
	}
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: consoleLevel})

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("cannot create log directory %s: %w", logDir, err)
	}
	name := fmt.Sprintf("imagedup_%s.log", time.Now().Format("20060102"))
	file, err := os.OpenFile(filepath.Join(logDir, name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file: %w", err)
	}
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := slog.New(slogmulti.Fanout(console, fileHandler))
	closer := func() { file.Close() }
	return logger, closer, nil
}
