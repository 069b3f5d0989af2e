package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
)

// progressWidth bounds the error text on a progress line.
const progressWidth = 80

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "Found %d entries\n", event.Total)
		case crawl.ProgressEntry:
			switch {
			case event.Outcome.Failed():
				fmt.Fprintln(deps.Stderr, crawl.FormatProgress(event, progressWidth))
			case event.Outcome == harvest.OutcomeSucceeded:
				fmt.Fprintln(deps.Stdout, crawl.FormatProgress(event, progressWidth))
			}
		case crawl.ProgressFinished:
			// Summary printed after the run completes
		}
	}

	result, err := deps.Harvester.Run(deps.Ctx, progress)
	if (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && result != nil {
		fmt.Fprintln(deps.Stderr, "interrupted; progress saved, run again to resume")
		writeSummary(deps.Stdout, result)
		return err
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %v\n", err)
		return err
	}

	writeSummary(deps.Stdout, result)
	return nil
}
