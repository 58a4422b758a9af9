// File: cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"
	"time"

	"mugo_plumbing_backend/internal/config"

	"go.uber.org/zap"
)

const usage = `usage: server [command]

commands:
  (none)           start the HTTP server
  seed-catalog     write the default service catalog
  sync-providers   bulk reindex providers into Elasticsearch
  expire-bookings  cancel stale pending bookings once
`

func main() {
	if len(os.Args) > 1 {
		if err := runCommand(os.Args[1], os.Args[2:]); err != nil {
			log.Fatalf("FATAL: %s: %v", os.Args[1], err)
		}
		return
	}
	startServer()
}

func runCommand(name string, args []string) error {
	cmd := flag.NewFlagSet(name, flag.ExitOnError)
	timeout := cmd.Duration("timeout", 5*time.Minute, "Upper bound for the command")

	var run func(ctx context.Context, a *application) error
	switch name {
	case "seed-catalog":
		run = seedCatalog
	case "sync-providers":
		run = syncProviders
	case "expire-bookings":
		run = expireBookings
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", name)
	}
	if err := cmd.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a, cleanup, err := initializeApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer cleanup()
	defer a.Logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	return run(ctx, a)
}

func seedCatalog(ctx context.Context, a *application) error {
	created, err := a.Catalog.SeedDefaults(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("Catalog seed completed", zap.Int("entries", created))
	return nil
}

func syncProviders(ctx context.Context, a *application) error {
	if err := a.Server.EnsureSearchIndex(ctx); err != nil {
		return fmt.Errorf("failed to create/verify providers index: %w", err)
	}
	indexed, err := a.Providers.SyncSearchIndex(ctx)
	if err != nil {
		return err
	}
	a.Logger.Info("Provider synchronization completed", zap.Int("indexed", indexed))
	return nil
}

func expireBookings(ctx context.Context, a *application) error {
	_, err := a.ExpiryJob.RunOnce(ctx)
	return err
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	a, cleanup, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()
	defer a.Logger.Sync() //nolint:errcheck

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := a.Server.EnsureSearchIndex(indexCtx); err != nil {
		a.Logger.Error("Failed to create Elasticsearch providers index, search may be degraded", zap.Error(err))
	}
	cancelIndex()

	go func() {
		if err := a.Server.Start(); err != nil {
			log.Fatalf("FATAL: Server failed to start or crashed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
	log.Println("INFO: Application exiting.")
}
