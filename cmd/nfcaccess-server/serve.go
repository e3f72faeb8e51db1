package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfcaccess/server/internal/httpapi"
	"github.com/nfcaccess/server/internal/nfcaccess/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, loadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	pruner := service.NewSessionPruner(a.store, service.PrunerConfig{
		RetentionHours:  a.cfg.SessionRetentionHours,
		IntervalMinutes: a.cfg.PruneIntervalMinutes,
	}, service.SystemClock, a.logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         a.logger,
		Addr:           a.cfg.HTTPAddr,
		AllowedOrigins: a.cfg.AllowedOrigins,
		Directory:      a.directory,
		Pairing:        a.pairing,
		Gateway:        a.gateway,
		Audit:          a.audit,
	})

	errc := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			a.logger.Error().Err(err).Msg("server error")
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
