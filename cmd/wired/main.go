// Command wired runs the connection-state-machine daemon: it watches kernel
// netdevs over rtnetlink, drives STA/AP 802.11 authentication/association
// over nl80211, and exposes a gRPC control surface (§4.10).
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lcalzada-xor/wired/internal/app"
	"github.com/lcalzada-xor/wired/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("wired starting...")

	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("application exited with error: %v", err)
	}

	slog.Info("wired stopped")
}
