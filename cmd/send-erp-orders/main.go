// Command send-erp-orders pushes orders the ERP has not acknowledged yet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/bookstore/backend/internal/app"
	appintegration "github.com/bookstore/backend/internal/application/integration"
	"github.com/bookstore/backend/internal/infrastructure/config"
	"github.com/bookstore/backend/internal/infrastructure/logger"
	"github.com/bookstore/backend/internal/infrastructure/persistence"
	gormlogger "gorm.io/gorm/logger"
)

// orderIDs collects repeated --order-id flags
type orderIDs []int64

func (o *orderIDs) String() string {
	parts := make([]string, 0, len(*o))
	for _, id := range *o {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func (o *orderIDs) Set(value string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid order id %q", value)
	}
	*o = append(*o, id)
	return nil
}

type options struct {
	orderIDs orderIDs
	limit    int
	dryRun   bool
	verbose  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("send-erp-orders", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&opts.orderIDs, "order-id", "Send only the specified order id (can be repeated)")
	fs.IntVar(&opts.limit, "limit", 0, "Limit number of orders processed")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Only show which orders would be sent")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.limit < 0 {
		return opts, errors.New("--limit cannot be negative")
	}
	return opts, nil
}

func (o options) query() appintegration.PendingOrderQuery {
	return appintegration.PendingOrderQuery{
		OrderIDs: o.orderIDs,
		Limit:    o.limit,
		DryRun:   o.dryRun,
	}
}

// writeReport prints the outcome the way operators grep for it
func writeReport(report *appintegration.OrderExportReport, dryRun bool, stdout, stderr io.Writer) {
	if dryRun {
		for _, id := range report.Planned {
			fmt.Fprintf(stdout, "Would send order %d\n", id)
		}
		fmt.Fprintln(stdout, "Dry run completed.")
		return
	}
	for _, failure := range report.Failures {
		fmt.Fprintf(stderr, "Failed to send order %d: %v\n", failure.OrderID, failure.Err)
	}
	fmt.Fprintf(stdout, "ERP order push finished: sent=%d errors=%d\n", report.Sent, len(report.Failures))
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
	if services.ERP == nil {
		fmt.Fprintln(stderr, services.ERPErr)
		return 1
	}

	report, err := services.OrderExport.SendPending(ctx, opts.query())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	writeReport(report, opts.dryRun, stdout, stderr)
	return 0
}
