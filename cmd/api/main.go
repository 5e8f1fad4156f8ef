package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/glowlive/ledger/internal/api"
	"github.com/glowlive/ledger/internal/events"
	"github.com/glowlive/ledger/internal/infra/logging"
	"github.com/glowlive/ledger/internal/infra/pgutils"
	pgaccounts "github.com/glowlive/ledger/internal/repos/accounts/postgres"
	pgcatalog "github.com/glowlive/ledger/internal/repos/giftcatalog/postgres"
	pgjournal "github.com/glowlive/ledger/internal/repos/journal/postgres"
	pgoutbox "github.com/glowlive/ledger/internal/repos/outbox/postgres"
	"github.com/glowlive/ledger/internal/services/billing"
	"github.com/glowlive/ledger/internal/services/payout"
	"github.com/glowlive/ledger/internal/services/transfer"
	"github.com/glowlive/ledger/pkg/envconf"
	"github.com/glowlive/ledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg := new(apiConfig)

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

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		return dbConns.Close()
	})

	// --- Ledger services ---
	engine := transfer.New(dbConns)

	payoutWf := payout.New(dbConns, engine, payout.LogDisburser{}, payout.Config{
		MinAmountMinor: cfg.PayoutMinMinor,
		MaxAmountMinor: cfg.PayoutMaxMinor,
	})

	billingSrv := billing.New(dbConns, engine, billing.Config{
		MaxChargeAttempts: 3,
		BatchSize:         100,
	})

	// --- Event notifier ---
	producer := events.NewKafkaProducer(cfg.Kafka)

	shutdownqueue.Add(func(context.Context) error {
		return producer.Close()
	})

	publisher := events.NewPublisher(pgoutbox.New(dbConns), producer, cfg.OutboxPollInterval)
	go publisher.Run(ctx)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.NewRouter(api.Deps{
		Engine:   engine,
		Payouts:  payoutWf,
		Billing:  billingSrv,
		Accounts: pgaccounts.New(dbConns),
		Journal:  pgjournal.New(dbConns),
		Catalog:  pgcatalog.New(dbConns),
	}))

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started")

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
