package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a.config, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending database migrations before serving")
	return cmd
}

func serve(ctx context.Context, c config.Config, migrate bool) error {
	if c.GetEnv() == "DEV" {
		displayAppname(c.GetAppName())
	}

	b, err := openBackends(ctx, c, migrate)
	if err != nil {
		return err
	}
	defer b.close()

	services, err := buildServices(c, b)
	if err != nil {
		return err
	}
	handler, err := server.New(c, services)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})
	return g.Wait()
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe: %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
