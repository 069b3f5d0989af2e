package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
)

// Ensure LoggingExtractionService implements harvest.ExtractionService.
var _ harvest.ExtractionService = (*LoggingExtractionService)(nil)

// LoggingExtractionService wraps an ExtractionService with logging.
type LoggingExtractionService struct {
	next   harvest.ExtractionService
	logger *slog.Logger
}

// NewLoggingExtractionService creates a new LoggingExtractionService.
func NewLoggingExtractionService(next harvest.ExtractionService, logger *slog.Logger) *LoggingExtractionService {
	return &LoggingExtractionService{next: next, logger: logger}
}

// ListEntries logs the size of the catalog listing.
func (s *LoggingExtractionService) ListEntries(ctx context.Context, sourceRoot string) (names []string, err error) {
	defer func(begin time.Time) {
		lvl := slog.LevelInfo
		if err != nil {
			lvl = slog.LevelError
		}
		s.logger.Log(ctx, lvl, "list entries",
			"source", sourceRoot,
			"entries", len(names),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ListEntries(ctx, sourceRoot)
}

// ExtractEntry logs the sub-item counts read from one entry page.
func (s *LoggingExtractionService) ExtractEntry(ctx context.Context, locator string) (ext *harvest.Extraction, err error) {
	defer func(begin time.Time) {
		var triggers, actions int
		if ext != nil {
			triggers, actions = len(ext.Triggers), len(ext.Actions)
		}
		s.logger.Log(ctx, level(err), "extract entry",
			"url", locator,
			"triggers", triggers,
			"actions", actions,
			"duration", time.Since(begin),
			"code", harvest.ErrorCode(err),
			"err", err,
		)
		if ext != nil && ext.Unnamed > 0 {
			s.logger.DebugContext(ctx, "dropped sub-items without a name", "url", locator, "unnamed", ext.Unnamed)
		}
	}(time.Now())
	return s.next.ExtractEntry(ctx, locator)
}

// Close delegates to the wrapped service.
func (s *LoggingExtractionService) Close() error {
	return s.next.Close()
}
