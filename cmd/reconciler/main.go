package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/glowlive/ledger/internal/infra/logging"
	"github.com/glowlive/ledger/internal/infra/pgutils"
	"github.com/glowlive/ledger/internal/services/billing"
	"github.com/glowlive/ledger/internal/services/transfer"
	"github.com/glowlive/ledger/pkg/envconf"
	"github.com/glowlive/ledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running reconciler: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(reconcilerConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		return dbConns.Close()
	})

	billingSrv := billing.New(dbConns, transfer.New(dbConns), billing.Config{
		MaxChargeAttempts: cfg.MaxChargeAttempts,
		BatchSize:         cfg.BatchSize,
	})

	c := cron.New()

	_, err = c.AddFunc(cfg.CronSpec, func() {
		rerr := billingSrv.RunOnce(ctx)
		if rerr != nil {
			slog.Error("billing pass failed", "error", rerr)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule billing pass: %w", err)
	}

	c.Start()

	// Let an in-flight pass finish before the DB closes.
	shutdownqueue.Add(func(shutdownCtx context.Context) error {
		select {
		case <-c.Stop().Done():
			return nil
		case <-shutdownCtx.Done():
			return fmt.Errorf("stop cron: %w", shutdownCtx.Err())
		}
	})

	slog.Info("billing reconciler started", "cron", cfg.CronSpec)

	<-ctx.Done()

	return nil
}
