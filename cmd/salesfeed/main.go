package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/salesfeed/internal/config"
	"github.com/JonMunkholm/salesfeed/internal/database"
	"github.com/JonMunkholm/salesfeed/internal/logging"
	"github.com/JonMunkholm/salesfeed/internal/pipeline"
	"github.com/JonMunkholm/salesfeed/internal/report"
	"github.com/JonMunkholm/salesfeed/internal/transfer"
)

// Process exit codes.
const (
	exitOK         = 0
	exitConfig     = 1
	exitDataSource = 2
	exitTransfer   = 3
)

type options struct {
	envFile    string
	configFile string
	dryRun     string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	opts, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		return exitConfig
	}

	// Existing environment variables win over the .env file
	if err := godotenv.Load(opts.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no .env file found, using environment variables", "path", opts.envFile)
		} else {
			slog.Error("failed to read .env file", "path", opts.envFile, "error", err)
			return exitConfig
		}
	}

	cfg, err := config.Load(config.Options{File: opts.configFile, DryRun: opts.dryRun != ""})
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return exitConfig
	}

	if opts.dryRun == "-" {
		// Keep stdout clean for the CSV
		slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
	} else {
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	loc, err := cfg.Report.Location()
	if err != nil {
		slog.Error("invalid report timezone", "error", err)
		return exitConfig
	}
	enc, err := report.ParseEncoding(cfg.Report.Encoding)
	if err != nil {
		slog.Error("invalid report encoding", "error", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		return exitDataSource
	}
	defer db.Close()
	slog.Info("connected to database", "driver", db.Dialect, "name", cfg.Database.Database)

	p := &pipeline.Pipeline{
		Fetcher:   report.NewFetcher(db.DB, db.Dialect),
		Uploader:  transfer.NewClient(transfer.NewSFTPDialer(cfg.SFTP)),
		Location:  loc,
		Encoding:  enc,
		RemoteDir: cfg.SFTP.RemoteDir,
	}

	if opts.dryRun != "" {
		out, closeOut, err := dryRunOutput(opts.dryRun, stdout)
		if err != nil {
			slog.Error("failed to open dry-run output", "path", opts.dryRun, "error", err)
			return exitConfig
		}
		defer closeOut()
		p.Output = out
	}

	sum, err := p.Run(ctx)
	code := exitCode(err)
	if code == exitOK {
		slog.Info("sales feed finished",
			"run_id", sum.RunID,
			"file", sum.FileName,
			"rows", sum.Rows,
			"bytes", sum.Bytes,
			"dry_run", sum.DryRun,
		)
	}
	return code
}

func parseFlags(args []string) (options, error) {
	var opts options
	fsFlags := flag.NewFlagSet("salesfeed", flag.ContinueOnError)
	fsFlags.StringVar(&opts.envFile, "env-file", ".env", "path to a .env file (missing file is ignored)")
	fsFlags.StringVar(&opts.configFile, "config", "", "optional YAML/JSON/TOML config file")
	fsFlags.StringVar(&opts.dryRun, "dry-run", "", "write the CSV to this path (or - for stdout) instead of uploading")
	if err := fsFlags.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// dryRunOutput resolves the -dry-run target. "-" means stdout.
func dryRunOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close dry-run output", "path", path, "error", err)
		}
	}, nil
}

// exitCode maps a pipeline error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrTransfer):
		return exitTransfer
	default:
		return exitDataSource
	}
}
