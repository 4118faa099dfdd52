// logger.go

// Package logging configures slog for the greenhouse daemon: text handler,
// duplicated to stdout and a logfile under LOG_DIR.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Init returns the process logger and the opened logfile so callers can
// Close() on shutdown. A failing logfile falls back to stdout only.
func Init() (*slog.Logger, *os.File) {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "./logs"
	}
	_ = os.MkdirAll(logDir, 0o755)

	filePath := filepath.Join(logDir, "greenhouse.log")
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		logger.Error("failed to open log file; falling back to stdout only", "error", err)
		return logger, os.Stdout
	}

	mw := io.MultiWriter(f, os.Stdout)
	h := slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(h)

	// align legacy stdlib log output too
	log.SetOutput(mw)
	return logger, f
}
