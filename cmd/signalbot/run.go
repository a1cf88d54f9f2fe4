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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quangtran88/signalbot/internal/api"
	"github.com/quangtran88/signalbot/internal/bot"
	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/logger"
	"github.com/quangtran88/signalbot/internal/reporting"
	"github.com/quangtran88/signalbot/internal/signalstore"
)

func newRunCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the engine and HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "start with the scheduler stopped")
	return cmd
}

func runEngine(noScheduler bool) error {
	// Missing .env is fine; credentials may come from the environment.
	_ = godotenv.Load(envFile)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}

	engine, err := bot.New(cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	reporting.PrintStartupInfo(os.Stdout, cfg, engine.Strategies().List())

	if !noScheduler && cfg.AutoStartScheduler {
		if err := engine.StartScheduler(); err != nil {
			return err
		}
	}

	router := api.NewRouter(engine, logger.Component(log, "api"))
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}

	reporting.PrintSchedulerStatus(os.Stdout, engine.SchedulerStatus())
	if queued := engine.Pending().List(signalstore.StatusPending); len(queued) > 0 {
		reporting.PrintPendingSignals(os.Stdout, queued)
	}
	return nil
}
