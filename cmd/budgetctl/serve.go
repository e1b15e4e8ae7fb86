package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-budget-client/internal/fakeapi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeFakeCommand(a *app) *cobra.Command {
	var (
		addr     string
		username string
		password string
		demo     bool
	)

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Run the in-memory fake budget API for demos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			displayAppname(a.cfg.GetAppName())

			options := []fakeapi.Option{fakeapi.WithLogger(log.Logger), fakeapi.WithMetricsEndpoint()}
			if username != "" {
				options = append(options, fakeapi.WithUser(username, password))
			}
			if demo {
				options = append(options, fakeapi.WithDemoData())
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           fakeapi.New(options...),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errs := make(chan error, 1)
			go func() { errs <- listenAndServe(server) }()

			select {
			case err := <-errs:
				return err
			case <-cmd.Context().Done():
			}
			return shutdown(server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	cmd.Flags().StringVar(&username, "user", "demo", "seed an account with this username (empty for none)")
	cmd.Flags().StringVar(&password, "password", "demo-password", "password for the seeded account")
	cmd.Flags().BoolVar(&demo, "demo", true, "seed demo categories and templates")
	return cmd
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Fake API listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("Fake API stopped")
	return nil
}
