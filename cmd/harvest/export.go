package main

import (
	"fmt"

	"github.com/fwojciec/harvest"
)

// Run executes the export command.
func (c *ExportCmd) Run(deps *Dependencies) error {
	entries, err := deps.Results.Load(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	latest, err := deps.Exporter.WriteLatest(deps.Ctx, entries)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	final, err := deps.Exporter.WriteFinal(deps.Ctx, entries, deps.Now())
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Exported %d entries\n", len(entries))
	writeArtifacts(deps.Stdout, latest, final)
	return nil
}
