// Package main provides the entry point for the securecore CLI.
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
	"time"

	"github.com/urfave/cli/v3"

	"github.com/havenhealth/securecore/cmd/app/commands"
	"github.com/havenhealth/securecore/internal/app"
	"github.com/havenhealth/securecore/internal/config"
)

// withContainer builds the dependency container, initializes the core
// (key hierarchy, audit encryptor, coordinator), runs fn, and shuts down.
func withContainer(ctx context.Context, fn func(ctx context.Context, container *app.Container) error) error {
	container := app.NewContainer(config.Load())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			container.Logger().Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := container.InitializeCore(ctx); err != nil {
		return err
	}
	return fn(ctx, container)
}

func main() {
	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}

	cmd := &cli.Command{
		Name:    "securecore",
		Usage:   "Tiered encryption, payment tokenization, and security coordination core",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "rotate-keys",
				Usage: "Start or complete a master secret rotation for a key domain",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "domain",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Key domain to rotate ('primary' or 'payment')",
					},
					&cli.BoolFlag{
						Name:    "complete",
						Aliases: []string{"c"},
						Value:   false,
						Usage:   "Complete a started rotation and wipe the previous keys",
					},
					formatFlag,
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						hierarchy, err := container.KeyHierarchy()
						if err != nil {
							return err
						}
						return commands.RunRotateKeys(
							ctx,
							hierarchy,
							container.Logger(),
							os.Stdout,
							cmd.String("domain"),
							cmd.Bool("complete"),
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "emergency-check",
				Usage: "Probe the crisis decryption path and report accessibility",
				Flags: []cli.Flag{formatFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						coordinator, err := container.Coordinator()
						if err != nil {
							return err
						}
						return commands.RunEmergencyCheck(
							ctx,
							coordinator,
							container.Logger(),
							os.Stdout,
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "clean-audit-events",
				Usage: "Delete audit events past their retention windows",
				Flags: []cli.Flag{formatFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						audit, err := container.AuditEncryptor()
						if err != nil {
							return err
						}
						return commands.RunCleanAuditEvents(
							ctx,
							audit,
							container.Logger(),
							os.Stdout,
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "verify-audit-events",
				Usage: "Verify the tamper digest of every stored audit record",
				Flags: []cli.Flag{formatFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						audit, err := container.AuditEncryptor()
						if err != nil {
							return err
						}
						return commands.RunVerifyAuditEvents(
							ctx,
							audit,
							container.Logger(),
							os.Stdout,
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "status",
				Usage: "Report coordinator state and the key rotation schedule",
				Flags: []cli.Flag{formatFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, func(ctx context.Context, container *app.Container) error {
						coordinator, err := container.Coordinator()
						if err != nil {
							return err
						}
						hierarchy, err := container.KeyHierarchy()
						if err != nil {
							return err
						}
						return commands.RunStatus(
							ctx,
							coordinator,
							hierarchy,
							os.Stdout,
							cmd.String("format"),
						)
					})
				},
			},
			{
				Name:  "serve-metrics",
				Usage: "Serve Prometheus metrics until interrupted",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withContainer(ctx, runMetricsServer)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

func runMetricsServer(ctx context.Context, container *app.Container) error {
	provider, err := container.MetricsProvider()
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("metrics are disabled; set METRICS_ENABLED=true")
	}
	logger := container.Logger()

	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", container.Config().MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("metrics server stopped")
	return nil
}
