// Package slog decorates harvest services with structured logging.
package slog

import (
	"log/slog"
)

// level is Debug for successful calls and Warn for failed ones.
func level(err error) slog.Level {
	if err != nil {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}
