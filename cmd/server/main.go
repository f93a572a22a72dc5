package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/draftroom/internal/config"
	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/httpapi"
	"github.com/DoyleJ11/draftroom/internal/hub"
	"github.com/DoyleJ11/draftroom/internal/logging"
	"github.com/DoyleJ11/draftroom/internal/store"
	"github.com/DoyleJ11/draftroom/internal/store/memstore"
	"github.com/DoyleJ11/draftroom/internal/store/pgstore"
	"github.com/DoyleJ11/draftroom/internal/timer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	h := hub.NewHub(ctx, log.Named("hub"))
	svc := draft.New(st, h, log.Named("draft"), draft.Options{
		Policy:             cfg.SeriesPolicy,
		DefaultBanSeconds:  cfg.DefaultBanSeconds,
		DefaultPickSeconds: cfg.DefaultPickSeconds,
	})
	sweeper := timer.NewSweeper(svc, h, cfg.SweepInterval, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(svc, h, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to the in-memory
// store otherwise.
func openStore(cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return memstore.New(), func() {}, nil
	}
	pg, err := pgstore.Open(pgstore.Options{
		DSN:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, log.Named("pgstore"))
	if err != nil {
		return nil, nil, err
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}, nil
}
