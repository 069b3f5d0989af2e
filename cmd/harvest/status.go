package main

import (
	"fmt"

	"github.com/fwojciec/harvest"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	record, err := deps.Checkpoints.Load(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}
	entries, err := deps.Results.Load(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", harvest.ErrorMessage(err))
		return err
	}

	if len(record) == 0 && len(entries) == 0 {
		fmt.Fprintln(deps.Stdout, "Nothing harvested yet. Use 'harvest run' to start.")
		return nil
	}

	var triggers, actions, empty int
	for _, e := range entries {
		triggers += len(e.Triggers)
		actions += len(e.Actions)
		if len(e.Triggers)+len(e.Actions) == 0 {
			empty++
		}
	}

	var pending []string
	for name := range record {
		if !deps.Results.Has(name) {
			pending = append(pending, name)
		}
	}

	t := newTable(deps.Stdout)
	t.SetTitle("Harvest Status")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Attempted", len(record)},
		{"Harvested", len(entries)},
		{"Pending retry", len(pending)},
		{"Harvested without sub-items", empty},
		{"Triggers", triggers},
		{"Actions", actions},
		{"Latest snapshot", deps.LatestPath},
	})
	t.Render()

	return nil
}
