// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

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
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/med-explorer/internal/pubmed"
	"github.com/pdiddy/med-explorer/internal/search"
	"github.com/pdiddy/med-explorer/internal/web"
	"github.com/pdiddy/med-explorer/pkg/types"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search form over HTTP",
	Long: `Serve starts a web server with the search form. Each submitted search
runs with its own PubMed client built from the email entered in the form;
progress is streamed to the browser as it happens.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	base := pubmedConfig("")
	server := web.NewServer(backendFactory(base), discoveryConfig(), logger)

	srv := &http.Server{
		Addr:              viper.GetString("addr"),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		cmd.PrintErrf("Listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}

// backendFactory returns a web.BackendFactory building one client per
// search. All clients share an HTTP client and one policy limiter, so
// concurrent searches together stay within the NCBI request rate.
func backendFactory(base types.PubMedConfig) web.BackendFactory {
	httpClient := &http.Client{Timeout: base.Timeout}
	limiter := pubmed.PolicyLimiter(base)
	return func(email string) search.Backend {
		cfg := base
		cfg.Email = email
		return pubmed.NewClient(httpClient, cfg, logger, pubmed.WithLimiter(limiter))
	}
}
