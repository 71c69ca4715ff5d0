package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jmcleod/bequest/api"
	"github.com/jmcleod/bequest/license"
)

const sweepInterval = 5 * time.Minute

func newServerCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the license HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			b, err := openBackend(ctx, g.cfg, filepath.Join(g.cfg.DataDir, "licenses"))
			if err != nil {
				return err
			}
			defer b.Close()

			mopts, err := managerOptions(g.cfg, b, g.logger)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			a := api.New(license.New(b.store, mopts...), b.store,
				api.WithLogger(g.logger),
				api.WithMetricsRegistry(reg),
				api.WithAlertFunc(func(e api.AlertEvent) {
					g.logger.Warn("security alert",
						slog.String("type", string(e.Type)),
						slog.String("message", e.Message),
						slog.Int("count", e.Count))
				}),
				api.WithAuditWebhook(g.cfg.WebhookURL, g.cfg.WebhookAuth))
			defer a.Close()

			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.Recoverer)
			r.Mount("/api/v1", a.Router())
			r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", g.cfg.Port),
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			useTLS := g.cfg.TLSCert != ""
			if useTLS {
				cert, err := tls.LoadX509KeyPair(g.cfg.TLSCert, g.cfg.TLSKey)
				if err != nil {
					return fmt.Errorf("failed to load TLS key pair: %w", err)
				}
				server.TLSConfig = &tls.Config{
					Certificates: []tls.Certificate{cert},
					MinVersion:   tls.VersionTLS12,
				}
			}

			sweepDone := make(chan struct{})
			defer close(sweepDone)
			go a.RunSweeper(sweepDone, sweepInterval)

			done := make(chan error, 1)
			go func() {
				var err error
				if useTLS {
					err = server.ListenAndServeTLS("", "")
				} else {
					err = server.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- fmt.Errorf("server failed: %w", err)
					return
				}
				done <- nil
			}()

			printBanner(cmd.OutOrStdout())
			g.logger.Info("starting server",
				slog.Int("port", g.cfg.Port),
				slog.String("store", g.cfg.Store),
				slog.Bool("tls", useTLS),
				slog.Bool("watermark", b.watermark != nil))
			if !useTLS {
				g.logger.Warn("serving plain HTTP; credentials travel unencrypted unless a TLS proxy fronts this server")
			}

			select {
			case <-ctx.Done():
				g.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("server shutdown failed: %w", err)
				}
				return nil
			case err := <-done:
				return err
			}
		},
	}

	f := cmd.Flags()
	f.IntVarP(&g.cfg.Port, "port", "p", g.cfg.Port, "Port to listen on")
	f.StringVar(&g.cfg.TLSCert, "tls-cert", g.cfg.TLSCert, "Path to TLS certificate file")
	f.StringVar(&g.cfg.TLSKey, "tls-key", g.cfg.TLSKey, "Path to TLS key file")
	f.StringVar(&g.cfg.WebhookURL, "audit-webhook-url", g.cfg.WebhookURL, "Forward audit events as JSON to this URL")
	f.StringVar(&g.cfg.WebhookAuth, "audit-webhook-auth", g.cfg.WebhookAuth, `Header sent with webhook requests, e.g. "Authorization: Bearer xxx"`)
	return cmd
}
