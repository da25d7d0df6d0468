// Command sync-erp-products pulls the product catalog from the ERP and
// upserts it into the shop database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookstore/backend/internal/app"
	appintegration "github.com/bookstore/backend/internal/application/integration"
	"github.com/bookstore/backend/internal/infrastructure/config"
	"github.com/bookstore/backend/internal/infrastructure/logger"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const maxPageSize = 1000

type options struct {
	updatedSince string
	full         bool
	pageSize     int
	limit        int
	dryRun       bool
	verbose      bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("sync-erp-products", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.updatedSince, "updated-since", "", "ISO-8601 datetime or date for incremental sync")
	fs.BoolVar(&opts.full, "full", false, "Ignore stored sync state and fetch all products")
	fs.IntVar(&opts.pageSize, "page-size", 0, "Override ERP page size (max 1000)")
	fs.IntVar(&opts.limit, "limit", 0, "Limit number of products processed")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Do not persist any changes")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log every record")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.pageSize < 0 || opts.pageSize > maxPageSize {
		return opts, fmt.Errorf("--page-size must be between 1 and %d", maxPageSize)
	}
	if opts.limit < 0 {
		return opts, errors.New("--limit cannot be negative")
	}
	return opts, nil
}

// syncOptions maps the flags onto a sync run. The stored watermark is read
// unless --full or an explicit --updated-since is given.
func (o options) syncOptions() appintegration.SyncOptions {
	return appintegration.SyncOptions{
		UpdatedSince: o.updatedSince,
		Incremental:  !o.full && o.updatedSince == "",
		PageSize:     o.pageSize,
		Limit:        o.limit,
		DryRun:       o.dryRun,
	}
}

func formatStats(stats appintegration.SyncStats) string {
	return fmt.Sprintf("ERP sync finished: created=%d updated=%d skipped=%d errors=%d",
		stats.Created, stats.Updated, stats.Skipped, stats.Errors)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	log := logger.NewCLI(opts.verbose)
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	db, err := persistence.NewDatabase(&cfg.Database, logger.NewGormLogger(log, gormlogger.Warn, 0))
	if err != nil {
		fmt.Fprintf(stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer db.Close()

	tp, err := app.StartTelemetry(ctx, cfg, db.DB, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()

	services, err := app.New(cfg, db.DB, log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize services: %v\n", err)
		return 1
	}

	lock, err := app.NewRunLock(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to connect to Redis: %v\n", err)
		return 1
	}
	job, err := services.ProductSync(appintegration.WithRunLock(lock, cfg.Lock.TTL))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	stats, err := job.Sync(ctx, opts.syncOptions())
	if err != nil {
		log.Error("ERP product sync failed", zap.Error(err))
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, formatStats(stats))
	return 0
}
