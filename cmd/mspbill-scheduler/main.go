package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/config"
	"github.com/platinummonkey/mspbill/pkg/invoices"
	"github.com/platinummonkey/mspbill/pkg/observability"
	"github.com/platinummonkey/mspbill/pkg/storage/postgres"
)

// Sweep schedules, expressed in the scheduler's local clock. Each run
// covers the previous closed calendar period, so a late start only
// delays a sweep, it never skips a period.
const (
	monthlySchedule   = "0 2 1 * *"     // 02:00 on the 1st
	quarterlySchedule = "0 3 1 1,4,7,10 *" // 03:00 on quarter starts
	annualSchedule    = "0 4 1 1 *"     // 04:00 on January 1st
)

func main() {
	runOnce := flag.Bool("run-once", false, "Run a single sweep and exit")
	frequency := flag.String("frequency", "monthly", "Plan frequency to sweep in run-once mode (monthly, quarterly, annually)")
	periodStart := flag.String("period-start", "", "Backfill period start (YYYY-MM-DD, run-once only)")
	periodEnd := flag.String("period-end", "", "Backfill period end (YYYY-MM-DD, run-once only)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	opts := runOptions{
		runOnce:   *runOnce,
		frequency: billing.BillingFrequency(*frequency),
	}
	if *periodStart != "" || *periodEnd != "" {
		if !*runOnce {
			fmt.Fprintln(os.Stderr, "-period-start and -period-end require -run-once")
			os.Exit(1)
		}
		start, err := time.Parse("2006-01-02", *periodStart)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -period-start: %v\n", err)
			os.Exit(1)
		}
		end, err := time.Parse("2006-01-02", *periodEnd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -period-end: %v\n", err)
			os.Exit(1)
		}
		if !start.Before(end) {
			fmt.Fprintln(os.Stderr, "-period-start must be before -period-end")
			os.Exit(1)
		}
		opts.periodStart, opts.periodEnd = &start, &end
	}

	if err := run(cfg, logger, opts); err != nil {
		logger.WithError(err).Error("scheduler exited")
		os.Exit(1)
	}
}

type runOptions struct {
	runOnce   bool
	frequency billing.BillingFrequency

	// Explicit backfill period; nil means the previous closed period.
	periodStart *time.Time
	periodEnd   *time.Time
}

func run(cfg *config.Config, logger *observability.Logger, opts runOptions) error {
	conns, err := postgres.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer conns.Close()
	db := conns.Primary()

	repo := billing.NewPostgresRepository(db)
	invoiceService := invoices.NewPostgresService(db, repo, billing.TaxCalculator{}, logger)
	sweeper := invoices.NewSweeper(invoiceService, repo, logger)

	sweepAll := func(frequency billing.BillingFrequency) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		defer observability.RecoverPanic(logger, "invoice sweep")

		tenants, err := billing.ActiveTenants(ctx, db)
		if err != nil {
			logger.WithError(err).Error("failed to list tenants for sweep")
			return
		}

		periodStart, periodEnd := invoices.PreviousPeriod(time.Now(), frequency)
		if opts.periodStart != nil && opts.periodEnd != nil {
			periodStart, periodEnd = *opts.periodStart, *opts.periodEnd
		}
		for _, tenantID := range tenants {
			result, err := sweeper.Run(ctx, tenantID, frequency, periodStart, periodEnd)
			if err != nil {
				logger.WithError(err).WithField("tenant_id", tenantID).Error("sweep failed")
				continue
			}
			logger.WithFields(map[string]interface{}{
				"tenant_id": tenantID,
				"frequency": string(frequency),
				"generated": result.Generated,
				"failed":    result.Failed,
			}).Info("sweep finished")
		}
	}

	if opts.runOnce {
		sweepAll(opts.frequency)
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(monthlySchedule, func() { sweepAll(billing.FrequencyMonthly) }); err != nil {
		return fmt.Errorf("failed to schedule monthly sweep: %w", err)
	}
	if _, err := c.AddFunc(quarterlySchedule, func() { sweepAll(billing.FrequencyQuarterly) }); err != nil {
		return fmt.Errorf("failed to schedule quarterly sweep: %w", err)
	}
	if _, err := c.AddFunc(annualSchedule, func() { sweepAll(billing.FrequencyAnnually) }); err != nil {
		return fmt.Errorf("failed to schedule annual sweep: %w", err)
	}
	c.Start()
	defer c.Stop()

	logger.Info("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Infof("received signal %s, shutting down", sig)

	return nil
}
