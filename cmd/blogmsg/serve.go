package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogmsg/internal/config"
	"blogmsg/internal/constants"
	"blogmsg/internal/models"
	"blogmsg/internal/server"
	"blogmsg/internal/tracing"
	"blogmsg/pkg/messaging/types"

	"github.com/spf13/cobra"
)

func userToWire(u models.User) types.User {
	return types.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reference messaging dev server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ValidateServer(cfg); err != nil {
				return err
			}

			tracingCfg := tracing.DefaultConfig()
			tracingCfg.Enabled = cfg.Tracing.Enabled
			tracingCfg.UseStdout = cfg.Tracing.UseStdout
			if cfg.Tracing.OTLPEndpoint != "" {
				tracingCfg.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
			}
			if cfg.Tracing.SampleRate > 0 {
				tracingCfg.SampleRate = cfg.Tracing.SampleRate
			}

			ctx := context.Background()
			tracingManager := tracing.NewManager(tracingCfg, log)
			if err := tracingManager.Initialize(ctx); err != nil {
				return err
			}
			defer func() {
				if err := tracingManager.Shutdown(context.Background()); err != nil {
					log.WithError(err).Warn("Tracing shutdown failed")
				}
			}()

			store, err := server.NewStore(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			for i := range cfg.Server.Users {
				u := userToWire(cfg.Server.Users[i])
				if err := store.UpsertUser(ctx, &u); err != nil {
					return err
				}
			}

			srv := server.NewServer(store, cfg.Server, log)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.WithField("signal", sig.String()).Info("Shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				constants.DefaultGracefulShutdownSec*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
