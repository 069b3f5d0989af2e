// Package crawl provides catalog harvesting orchestration.
// It coordinates catalog discovery, per-entry extraction, rate limiting,
// and the persistence of checkpoints, results, and exports.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/google/uuid"
)

// ErrDiscovery marks a failure of the catalog listing. It aborts the run
// before any entry is processed.
var ErrDiscovery = errors.New("catalog discovery failed")

// Harvester walks the catalog one entry at a time. Entries already present
// in Results are skipped; everything else is extracted, stored, exported,
// and marked attempted in Checkpoints.
type Harvester struct {
	SourceRoot  string
	Service     harvest.ExtractionService
	Checkpoints harvest.CheckpointStore
	Results     harvest.ResultStore
	Exporter    harvest.Exporter
	RateLimiter harvest.DomainLimiter
	Logger      *slog.Logger

	// Now returns the time used to name the final snapshot.
	// Defaults to time.Now.
	Now func() time.Time
}

// Result holds the outcome of a harvest run.
type Result struct {
	RunID  string
	Stats  harvest.RunStatistics
	Latest *harvest.Export
	Final  *harvest.Export
}

// ProgressEvent reports progress during a harvest run.
type ProgressEvent struct {
	Type      ProgressType
	Name      string
	Outcome   harvest.Outcome
	Completed int
	Total     int
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressEntry
	ProgressFinished
)

// ProgressFunc is a callback for reporting harvest progress.
type ProgressFunc func(event ProgressEvent)

// Run harvests the catalog at SourceRoot. A listing failure is returned
// wrapped in ErrDiscovery. Per-entry failures never end the run; they are
// counted in the returned statistics. If ctx is canceled, or its deadline
// leaves no room for the next paced request, the run stops before the next
// entry and returns the partial result with an error wrapping ctx's error.
func (h *Harvester) Run(ctx context.Context, progress ProgressFunc) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := h.logger().With("run", result.RunID)

	// Persistence runs to completion even when the run is being canceled.
	persistCtx := context.WithoutCancel(ctx)

	if _, err := h.Checkpoints.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}
	loaded, err := h.Results.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	logger.Info("resume state loaded", "entries", len(loaded))
	h.reconcile(persistCtx, logger, loaded, &result.Stats)

	names, err := h.Service.ListEntries(ctx, h.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	names = dedupe(names, &result.Stats)
	result.Stats.Discovered = len(names)
	logger.Info("catalog listed", "source", h.SourceRoot, "entries", len(names), "duplicates", result.Stats.Duplicates)
	if len(names) == 0 {
		logger.Warn("catalog listing matched no entries", "source", h.SourceRoot)
	}

	total := len(names)
	if progress != nil {
		progress(ProgressEvent{Type: ProgressStarted, Total: total})
	}

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, entry, err := h.processEntry(ctx, persistCtx, logger, name, result)
		var stop *interruptError
		if errors.As(err, &stop) {
			logger.Warn("harvest interrupted", "entry", name, "err", stop.cause)
			return result, stop.cause
		}
		if entry != nil {
			result.Stats.Record(outcome, len(entry.Triggers), len(entry.Actions))
		} else {
			result.Stats.Record(outcome, 0, 0)
		}

		if progress != nil {
			progress(ProgressEvent{
				Type:      ProgressEntry,
				Name:      name,
				Outcome:   outcome,
				Completed: i + 1,
				Total:     total,
				Error:     err,
			})
		}
	}

	snapshot := h.Results.Snapshot()
	if latest, err := h.Exporter.WriteLatest(persistCtx, snapshot); err != nil {
		result.Stats.PersistErrors++
		logger.Error("latest export failed", "err", err)
	} else {
		result.Latest = latest
	}
	if final, err := h.Exporter.WriteFinal(persistCtx, snapshot, h.now()); err != nil {
		result.Stats.PersistErrors++
		logger.Error("final export failed", "err", err)
	} else {
		result.Final = final
	}

	if progress != nil {
		progress(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})
	}

	logger.Info("harvest finished",
		"discovered", result.Stats.Discovered,
		"succeeded", result.Stats.Succeeded,
		"failed", result.Stats.Failed,
		"skipped", result.Stats.Skipped,
	)

	return result, nil
}

// interruptError stops the run before the entry in flight is recorded.
type interruptError struct {
	cause error
}

func (e *interruptError) Error() string { return e.cause.Error() }
func (e *interruptError) Unwrap() error { return e.cause }

// processEntry runs the skip/extract/store sequence for one name. It
// returns the stored entry on success and the extraction or storage error
// on failure.
func (h *Harvester) processEntry(ctx, persistCtx context.Context, logger *slog.Logger, name string, result *Result) (harvest.Outcome, *harvest.Entry, error) {
	if h.Results.Has(name) {
		logger.Debug("entry skipped", "entry", name)
		return harvest.OutcomeSkipped, nil, nil
	}

	if h.Checkpoints.Attempted(name) {
		result.Stats.Retried++
	}

	locator := harvest.Locator(h.SourceRoot, name)
	if h.RateLimiter != nil {
		if err := h.RateLimiter.Wait(ctx, host(locator)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, nil, &interruptError{cause: ctxErr}
			}
			// The limiter refuses a wait that would outlast ctx's deadline.
			return 0, nil, &interruptError{cause: fmt.Errorf("%w: %w", context.DeadlineExceeded, err)}
		}
	}

	begin := time.Now()
	extraction, err := h.Service.ExtractEntry(ctx, locator)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, &interruptError{cause: ctxErr}
		}
		outcome := harvest.OutcomeFailedError
		if harvest.ErrorCode(err) == harvest.ETIMEOUT {
			outcome = harvest.OutcomeFailedTimeout
		}
		logger.Warn("entry failed",
			"entry", name,
			"url", locator,
			"outcome", outcome.String(),
			"duration", time.Since(begin),
			"err", err,
		)
		h.markAttempted(persistCtx, logger, name, result)
		return outcome, nil, err
	}

	entry := &harvest.Entry{
		Name:     name,
		URL:      locator,
		Triggers: nonNil(extraction.Triggers),
		Actions:  nonNil(extraction.Actions),
	}
	added, err := h.Results.Append(persistCtx, entry)
	if err != nil {
		result.Stats.PersistErrors++
		logger.Error("storing entry failed", "entry", name, "err", err)
		h.markAttempted(persistCtx, logger, name, result)
		return harvest.OutcomeFailedError, nil, err
	}
	if !added {
		return harvest.OutcomeSkipped, nil, nil
	}

	if latest, err := h.Exporter.WriteLatest(persistCtx, h.Results.Snapshot()); err != nil {
		result.Stats.PersistErrors++
		logger.Error("latest export failed", "entry", name, "err", err)
	} else {
		result.Latest = latest
	}
	h.markAttempted(persistCtx, logger, name, result)

	logger.Info("entry harvested",
		"entry", name,
		"url", locator,
		"triggers", len(entry.Triggers),
		"actions", len(entry.Actions),
		"duration", time.Since(begin),
	)
	return harvest.OutcomeSucceeded, entry, nil
}

// markAttempted records name in the checkpoint and persists it.
func (h *Harvester) markAttempted(ctx context.Context, logger *slog.Logger, name string, result *Result) {
	h.Checkpoints.MarkAttempted(name)
	if err := h.Checkpoints.Persist(ctx); err != nil {
		result.Stats.PersistErrors++
		logger.Error("checkpoint persist failed", "entry", name, "err", err)
	}
}

// reconcile marks every stored entry as attempted. A crash between the
// result export and the checkpoint persist leaves stored names unmarked.
func (h *Harvester) reconcile(ctx context.Context, logger *slog.Logger, loaded []*harvest.Entry, stats *harvest.RunStatistics) {
	var repaired int
	for _, e := range loaded {
		if !h.Checkpoints.Attempted(e.Name) {
			h.Checkpoints.MarkAttempted(e.Name)
			repaired++
		}
	}
	if repaired == 0 {
		return
	}
	logger.Warn("checkpoint missing stored entries, repaired", "entries", repaired)
	if err := h.Checkpoints.Persist(ctx); err != nil {
		stats.PersistErrors++
		logger.Error("checkpoint persist failed", "err", err)
	}
}

func (h *Harvester) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}

func (h *Harvester) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// dedupe drops repeated names, keeping first occurrences in order.
func dedupe(names []string, stats *harvest.RunStatistics) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			stats.Duplicates++
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func nonNil(items []harvest.SubItem) []harvest.SubItem {
	if items == nil {
		return []harvest.SubItem{}
	}
	return items
}

func host(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return ""
	}
	return u.Host
}
