// Package main implements scry-ingest, a resumable batch extractor for
// scanned vehicle registration documents. It scans a directory, sends each
// document to the LLM extractor through the batch scheduler and writes the
// results as JSON lines. Progress is persisted so an interrupted run picks
// up where it stopped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-ingest/internal/batch"
	"github.com/phrazzld/scry-ingest/internal/config"
	"github.com/phrazzld/scry-ingest/internal/domain"
	"github.com/phrazzld/scry-ingest/internal/platform/logger"
)

// Process exit codes
const (
	exitOK       = 0
	exitFailures = 1
	exitError    = 2
	exitStopped  = 3
)

// options holds the command line flags.
type options struct {
	dir         string
	batchID     string
	out         string
	reset       bool
	retryFailed bool
	mintToken   string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return exitError
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "failed to set up logger: %v\n", err)
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.mintToken != "" {
		token, err := mintOperatorToken(ctx, cfg.Server.AuthSecret, cfg.Server.TokenLifetime(), opts.mintToken)
		if err != nil {
			log.Error("failed to mint operator token", "error", err)
			return exitError
		}
		fmt.Fprintln(stdout, token)
		return exitOK
	}

	app, err := newApplication(ctx, cfg, opts, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		return exitError
	}
	defer app.cleanup()

	summary, err := app.Run(ctx)
	if err != nil && !errors.Is(err, batch.ErrCancelled) {
		log.Error("batch run failed", "error", err)
		return exitError
	}

	fmt.Fprintln(stdout, summary.String())
	return exitCode(summary)
}

func exitCode(summary batch.Summary) int {
	switch summary.Outcome() {
	case batch.OutcomeCompleted:
		return exitOK
	case batch.OutcomeCompletedWithFailures:
		return exitFailures
	default:
		return exitStopped
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("scry-ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dir, "dir", "", "directory of registration documents to process (required)")
	fs.StringVar(&opts.batchID, "batch", "", "batch id used to key saved progress (default: derived from -dir)")
	fs.StringVar(&opts.out, "out", "", "write results as JSON lines to this file")
	fs.BoolVar(&opts.reset, "reset", false, "discard saved progress and start over")
	fs.BoolVar(&opts.retryFailed, "retry-failed", false, "re-queue items that failed in a previous run")
	fs.StringVar(&opts.mintToken, "mint-token", "", "print a control API token for this operator name and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.mintToken != "" {
		return opts, nil
	}
	if opts.dir == "" {
		fmt.Fprintln(stderr, "-dir is required")
		fs.Usage()
		return options{}, errors.New("missing -dir")
	}

	abs, err := filepath.Abs(opts.dir)
	if err != nil {
		return options{}, fmt.Errorf("failed to resolve %s: %w", opts.dir, err)
	}
	opts.dir = abs

	if opts.batchID == "" {
		opts.batchID = defaultBatchID(abs)
	}
	return opts, nil
}

// defaultBatchID derives a readable, stable id from the absolute directory.
func defaultBatchID(absDir string) string {
	name := strings.ToLower(filepath.Base(absDir))
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)
	sum := uuid.NewSHA1(domain.DocumentNamespace, []byte(absDir)).String()[:8]
	return name + "-" + sum
}
