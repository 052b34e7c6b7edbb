package main

import (
	"context"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fullann/Slither.io/internal/auth"
	"github.com/Fullann/Slither.io/internal/config"
	"github.com/Fullann/Slither.io/internal/game"
	"github.com/Fullann/Slither.io/internal/network"
	"github.com/Fullann/Slither.io/internal/room"
	"github.com/Fullann/Slither.io/internal/store"
	"github.com/Fullann/Slither.io/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	writeConfig := flag.String("write-config", "", "Write the effective config to this path and exit")
	envFile := flag.String("env-file", ".env", "Environment file loaded before the config")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(*envFile); err != nil {
		slog.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *writeConfig != "" {
		if err := cfg.WriteYAML(*writeConfig); err != nil {
			slog.Error("failed to write config", "error", err)
			os.Exit(1)
		}
		slog.Info("config written", "path", *writeConfig)
		return
	}

	if err := run(cfg, *seed); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, seed int64) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	authSvc, err := auth.New(ctx, db, cfg.Auth)
	if err != nil {
		return err
	}

	recorder := store.NewRecorder(db, cfg.Store, slog.Default())
	defer recorder.Stop()

	sink, err := telemetry.NewSink(cfg.Telemetry, cfg.Derived.TickInterval, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Stop(); err != nil {
			slog.Error("closing telemetry", "error", err)
		}
	}()

	world := game.NewWorld(cfg, rand.New(rand.NewSource(seed)))
	rm := room.New(cfg, world, room.Options{
		Recorder: recorder,
		Observer: sink,
		Logger:   slog.Default(),
	})

	roomDone := make(chan struct{})
	go func() {
		rm.Run(ctx)
		close(roomDone)
	}()

	slog.Info("starting server",
		"addr", cfg.Server.Addr,
		"seed", seed,
		"world", cfg.World.Width,
		"guests", cfg.Auth.AllowGuests,
		"db", cfg.Store.Path,
		"telemetry", cfg.Telemetry.Dir,
	)

	srv := network.New(ctx, cfg, rm, authSvc, db, slog.Default())
	err = srv.Run(ctx)
	stop()
	<-roomDone
	return err
}
