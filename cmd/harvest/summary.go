package main

import (
	"io"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// writeSummary renders the run statistics and the artifacts written.
func writeSummary(w io.Writer, r *crawl.Result) {
	s := r.Stats

	t := newTable(w)
	t.SetTitle("Harvest Summary")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Entries discovered", s.Discovered},
		{"Duplicates in listing", s.Duplicates},
		{"Skipped (already harvested)", s.Skipped},
		{"Attempted", s.Attempted},
		{"Succeeded", s.Succeeded},
		{"Failed", s.Failed},
		{"  of which timed out", s.TimedOut},
		{"Retried from earlier runs", s.Retried},
		{"Success rate", crawl.SuccessRate(s)},
		{"Triggers found", s.TriggersFound},
		{"Actions found", s.ActionsFound},
		{"Persistence errors", s.PersistErrors},
	})
	t.Render()

	writeArtifacts(w, r.Latest, r.Final)
}

// writeArtifacts lists the files of each non-nil export.
func writeArtifacts(w io.Writer, exports ...*harvest.Export) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Artifact", "Entries", "Rows", "Checksum"})
	for _, e := range exports {
		if e == nil {
			continue
		}
		t.AppendRow(table.Row{e.StructuredPath, e.Entries, "", e.Checksum})
		if e.FlatPath != "" {
			t.AppendRow(table.Row{e.FlatPath, "", e.Rows, ""})
		}
	}
	if t.Length() == 0 {
		return
	}
	t.Render()
}
