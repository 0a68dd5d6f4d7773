package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/freeeve/ultimalive/internal/httpapi"
	"github.com/freeeve/ultimalive/internal/shard"
	"github.com/freeeve/ultimalive/internal/store"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Serve statics and land blocks of the shard maps over HTTP",
	Long: `
The "serve" command opens every configured map of the shard and serves its
statics and land blocks over HTTP until interrupted. With --init, missing
shard maps are prepared first as by "init".

EXIT STATUS
===========

Exit status is 0 if the server shut down cleanly, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveOptions)
	},
}

// ServeOptions bundles all options for the serve command.
type ServeOptions struct {
	Addr string
	Init bool
}

var serveOptions ServeOptions

func init() {
	cmdRoot.AddCommand(cmdServe)

	f := cmdServe.Flags()
	f.StringVar(&serveOptions.Addr, "addr", ":8007", "listen address")
	f.BoolVar(&serveOptions.Init, "init", false, "prepare missing shard maps before serving")
}

func runServe(ctx context.Context, opts ServeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.Init {
		p := shard.NewProvisioner(cfg, shard.WithLogger(logger), shard.WithProgress(logProgress(logger)))
		if _, err := p.Prepare(ctx); err != nil {
			return err
		}
	}

	maps := make(map[int]store.MapStore, len(cfg.Maps))
	defer func() {
		for n, ms := range maps {
			if err := ms.Close(); err != nil {
				logger.Warn().Err(err).Int("map", n).Msg("close map")
			}
		}
	}()
	for _, m := range cfg.Maps {
		mapLog := logger.With().Str("component", "store").Logger()
		s, err := store.OpenSession(cfg.ShardDir(), m.Number, store.Options{
			StaticsCapacity: cfg.StaticsCapacity,
			NoSync:          globalOptions.NoSync,
			Logger:          &mapLog,
		})
		if err != nil {
			return err
		}
		maps[m.Number] = s
	}

	srv := &http.Server{
		Addr:         opts.Addr,
		Handler:      httpapi.NewRouter(logger.With().Str("component", "http").Logger(), maps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("block service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown error")
	}
	return nil
}
