package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/heliometric/heliometric/pkg/equipment"
	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/metrics"
	"github.com/heliometric/heliometric/pkg/server"
	"github.com/heliometric/heliometric/pkg/storage"
	"github.com/heliometric/heliometric/pkg/utility"

	"github.com/levenlabs/go-lflag"
)

func main() {
	m := metrics.NewCollector("heliometric")

	// init packages
	r := irradiation.Configured(m)
	u := utility.Configured()
	c := equipment.Configured()
	s := storage.Configured(m)

	// init server
	srv := server.Configured(r, u, c, s, m)

	// parse flags
	lflag.Configure()

	level := log.SyncLevel()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
