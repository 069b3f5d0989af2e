package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/crawl"
	"github.com/fwojciec/harvest/fs"
	"github.com/fwojciec/harvest/goquery"
	"github.com/fwojciec/harvest/htmltomarkdown"
	harvesthttp "github.com/fwojciec/harvest/http"
	"github.com/fwojciec/harvest/rod"
	harvestslog "github.com/fwojciec/harvest/slog"
	"github.com/fwojciec/harvest/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database, opened when --db is set.
	DB *sqlite.DB

	// Service replaces the browser-backed extraction service. Set before
	// calling Run() for end-to-end testing.
	Service harvest.ExtractionService

	// Now names final snapshots. Defaults to time.Now.
	Now func() time.Time
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Now: time.Now}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("harvest"),
		kong.Description("Resumable catalog harvester"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'harvest --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger, err := newLogger(stderr, cli.LogLevel, cli.LogFormat)
	if err != nil {
		return err
	}
	deps.Logger = logger

	if err := m.openStores(cli, deps); err != nil {
		return err
	}
	defer m.Close()

	if kongCtx.Command() == "run" {
		svc, err := m.extractionService(&cli.Run, logger, stderr)
		if err != nil {
			return err
		}
		svc = harvestslog.NewLoggingExtractionService(svc, logger)
		defer svc.Close()

		deps.Harvester = &crawl.Harvester{
			SourceRoot:  cli.Run.Source,
			Service:     svc,
			Checkpoints: deps.Checkpoints,
			Results:     deps.Results,
			Exporter:    deps.Exporter,
			RateLimiter: crawl.NewDomainLimiter(cli.Run.Delay),
			Logger:      logger,
			Now:         m.Now,
		}
	}

	return kongCtx.Run(deps)
}

// openStores wires the checkpoint and result stores: SQLite when --db is
// set, files otherwise. Exports always go to files.
func (m *Main) openStores(cli *CLI, deps *Dependencies) error {
	logger := deps.Logger

	if cli.DB != "" {
		m.DB = sqlite.NewDB(cli.DB)
		if err := m.DB.Open(); err != nil {
			fmt.Fprintf(deps.Stderr, "Hint: Set HARVEST_DB to use a different database path\n")
			return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
		}
		deps.Checkpoints = sqlite.NewCheckpointStore(m.DB, logger)
		deps.Results = sqlite.NewResultStore(m.DB, logger)
	} else {
		deps.Checkpoints = fs.NewCheckpointStore(cli.State, logger)
		deps.Results = fs.NewResultStore(fs.LatestPath(cli.Out, cli.Prefix), logger)
	}

	deps.Exporter = harvestslog.NewLoggingExporter(fs.NewExporter(cli.Out, cli.Prefix, logger), logger)
	deps.LatestPath = fs.LatestPath(cli.Out, cli.Prefix)
	return nil
}

func (m *Main) extractionService(c *RunCmd, logger *slog.Logger, stderr io.Writer) (harvest.ExtractionService, error) {
	if m.Service != nil {
		return m.Service, nil
	}

	var fetcher harvest.Fetcher
	if c.Static {
		fetcher = harvesthttp.NewFetcher(harvesthttp.WithTimeout(c.Timeout))
	} else {
		rodFetcher, err := rod.NewFetcher(
			rod.WithFetchTimeout(c.Timeout),
			rod.WithRecycleAfter(c.RecycleAfter),
		)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or pass --static")
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = rodFetcher
	}

	opts := []goquery.Option{goquery.WithSelectors(c.Selectors())}
	if c.Markdown {
		opts = append(opts, goquery.WithConverter(htmltomarkdown.NewConverter()))
	}
	return goquery.NewExtractionService(harvestslog.NewLoggingFetcher(fetcher, logger), opts...), nil
}

// newLogger builds the stderr logger from the --log-level and --log-format flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
