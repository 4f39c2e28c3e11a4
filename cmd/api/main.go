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

	"github.com/joho/godotenv"

	"github.com/asikdev/shopledger/internal/api"
	"github.com/asikdev/shopledger/internal/infra/logging"
	"github.com/asikdev/shopledger/internal/infra/pgutils"
	"github.com/asikdev/shopledger/internal/notify"
	"github.com/asikdev/shopledger/internal/services/ledger"
	"github.com/asikdev/shopledger/pkg/envconf"
	"github.com/asikdev/shopledger/pkg/shutdownqueue"
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
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

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
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close database pool")
		return db.Close()
	})

	notifier, err := notify.NewAmqpNotifier(cfg.Amqp)
	if err != nil {
		return fmt.Errorf("connect notifier: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close notifier")
		return notifier.Close()
	})

	ledgerSvc := ledger.New(db, notifier, cfg.Ledger)

	// --- Reconciliation sweeper ---
	sweepCtx, stopSweep := context.WithCancel(ctx)
	sweepDone := make(chan struct{})

	go func() {
		defer close(sweepDone)
		ledger.NewSweeper(ledgerSvc, cfg.SweepInterval).Run(sweepCtx)
	}()

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Stop sweeper")
		stopSweep()

		select {
		case <-sweepDone:
			return nil
		case <-c.Done():
			return fmt.Errorf("sweeper did not stop: %w", c.Err())
		}
	})

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, ledgerSvc, cfg.AdminToken)

	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

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

	slog.Info("API started", "port", cfg.Port)

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
