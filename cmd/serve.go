package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/fedsearch/fedsearch/pkg/api"
	"github.com/fedsearch/fedsearch/pkg/tracing"
	"github.com/fedsearch/fedsearch/pkg/version"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Override the configured listen address",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

func serve(ctx context.Context, configPath, listenAddr string) error {
	svc, err := buildServices(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer svc.close()

	if listenAddr == "" {
		listenAddr = svc.cfg.ListenAddr
	}

	shutdownTracing, err := tracing.Init(ctx, svc.cfg.Tracing.Enabled, svc.cfg.Tracing.Endpoint, version.Version)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shCtx); err != nil {
			log.Printf("Warning: failed to shut down tracing: %v", err)
		}
	}()

	// Reload tenants when the tenants file changes on disk.
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	go func() {
		if err := svc.tenants.Watch(watchCtx); err != nil {
			log.Printf("Warning: tenant watcher stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	server := api.NewServer(svc.assembler, svc.tenants, svc.firehose)
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           api.CorsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving search API on %s (version %s)", listenAddr, version.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
