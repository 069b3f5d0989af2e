package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

// Ensure LoggingExporter implements harvest.Exporter.
var _ harvest.Exporter = (*LoggingExporter)(nil)

// LoggingExporter wraps an Exporter and logs every artifact it writes.
type LoggingExporter struct {
	next   harvest.Exporter
	logger *slog.Logger
}

// NewLoggingExporter creates a new LoggingExporter.
func NewLoggingExporter(next harvest.Exporter, logger *slog.Logger) *LoggingExporter {
	return &LoggingExporter{next: next, logger: logger}
}

// WriteLatest logs the latest export at debug level; it runs after every entry.
func (e *LoggingExporter) WriteLatest(ctx context.Context, entries []*harvest.Entry) (export *harvest.Export, err error) {
	defer func(begin time.Time) {
		e.log(ctx, level(err), "write latest", export, len(entries), time.Since(begin), err)
	}(time.Now())
	return e.next.WriteLatest(ctx, entries)
}

// WriteFinal logs the final snapshot at info level.
func (e *LoggingExporter) WriteFinal(ctx context.Context, entries []*harvest.Entry, at time.Time) (export *harvest.Export, err error) {
	defer func(begin time.Time) {
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelError
		}
		e.log(ctx, lvl, "write final", export, len(entries), time.Since(begin), err)
	}(time.Now())
	return e.next.WriteFinal(ctx, entries, at)
}

func (e *LoggingExporter) log(ctx context.Context, lvl slog.Level, msg string, export *harvest.Export, entries int, d time.Duration, err error) {
	attrs := []any{"entries", entries, "duration", d}
	if export != nil {
		attrs = append(attrs,
			"json", export.StructuredPath,
			"csv", export.FlatPath,
			"rows", export.Rows,
			"checksum", export.Checksum,
		)
	}
	attrs = append(attrs, "err", err)
	e.logger.Log(ctx, lvl, msg, attrs...)
}
