package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/fwojciec/harvest/goquery"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	Checkpoints harvest.CheckpointStore
	Results     harvest.ResultStore
	Exporter    harvest.Exporter
	Harvester   *crawl.Harvester
	LatestPath  string
	Now         func() time.Time
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" env:"HARVEST_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" env:"HARVEST_LOG_FORMAT" help:"Log format (text, json)"`
	Out       string `default:"workato_data" env:"HARVEST_OUT" help:"Output directory for exports"`
	Prefix    string `default:"workato_connectors" env:"HARVEST_PREFIX" help:"File name prefix for exports"`
	State     string `default:"scraper_state.json" env:"HARVEST_STATE" help:"Checkpoint file"`
	DB        string `name:"db" env:"HARVEST_DB" help:"SQLite database for checkpoint and results (replaces --state)"`

	Run    RunCmd    `cmd:"" help:"Harvest the catalog, resuming where the last run stopped"`
	Status StatusCmd `cmd:"" help:"Show harvest progress from the stored state"`
	Export ExportCmd `cmd:"" help:"Write stored results to the latest and a final snapshot"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	Source       string        `default:"https://www.workato.com/integrations" env:"HARVEST_SOURCE" help:"Catalog root URL"`
	Delay        time.Duration `default:"2s" env:"HARVEST_DELAY" help:"Minimum spacing between entry page loads"`
	Timeout      time.Duration `short:"t" default:"30s" env:"HARVEST_TIMEOUT" help:"Fetch timeout per page"`
	Static       bool          `env:"HARVEST_STATIC" help:"Fetch pages over plain HTTP instead of a headless browser"`
	RecycleAfter int64         `name:"recycle-after" default:"0" help:"Restart the browser after this many pages (0 never)"`
	Markdown     bool          `help:"Convert sub-item descriptions to Markdown"`

	CatalogSelector     string   `name:"catalog-selector" help:"CSS selector for entry names on the catalog page"`
	TriggerSelector     string   `name:"trigger-selector" help:"CSS selector for triggers on an entry page"`
	ActionSelector      string   `name:"action-selector" help:"CSS selector for actions on an entry page"`
	DescriptionSelector string   `name:"description-selector" help:"CSS selector for a sub-item description"`
	Attribute           []string `name:"attribute" sep:"none" help:"Sub-item attribute to record (repeatable)"`
}

// Selectors returns the selector overrides given on the command line.
func (c *RunCmd) Selectors() goquery.Selectors {
	return goquery.Selectors{
		Catalog:     c.CatalogSelector,
		Trigger:     c.TriggerSelector,
		Action:      c.ActionSelector,
		Description: c.DescriptionSelector,
		Attributes:  c.Attribute,
	}
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// ExportCmd is the "export" subcommand.
type ExportCmd struct{}
