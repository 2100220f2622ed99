// Package main is the entrypoint for the roomclerk server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/events"
	"github.com/campusops/roomclerk/internal/frameworks/service"
	"github.com/campusops/roomclerk/internal/platform/clock"
	"github.com/campusops/roomclerk/internal/platform/config"
	"github.com/campusops/roomclerk/internal/platform/deps"
	"github.com/campusops/roomclerk/internal/platform/server"
	"github.com/campusops/roomclerk/internal/reconcile"
	"github.com/campusops/roomclerk/internal/store"
	"github.com/campusops/roomclerk/internal/suggest"

	// Register HTTP services
	_ "github.com/campusops/roomclerk/internal/api"

	// Register store drivers
	_ "github.com/campusops/roomclerk/internal/store/memory"
	_ "github.com/campusops/roomclerk/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: memory or sqlite (overrides config)")
	dataDir := flag.String("data-dir", "", "Data directory for the sqlite driver (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:   listenAddr,
			StoreDriver:  storeDriver,
			DataDir:      dataDir,
			LoggingLevel: loggingLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence
	if cfg.Store.Driver == "sqlite" {
		if err := os.MkdirAll(cfg.Store.DataDir, 0o700); err != nil {
			logger.Error("failed to create data directory", "path", cfg.Store.DataDir, "error", err)
			os.Exit(1)
		}
	}
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		logger.Error("failed to create store driver", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	if err := driver.Init(ctx); err != nil {
		logger.Error("failed to init store driver", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	logger.Info("store initialized", "driver", driver.Name())

	meetings := driver.(store.MeetingStore)
	rooms := driver.(store.RoomStore)
	users := driver.(store.UserStore)
	devices := driver.(store.DeviceStore)

	// Notification bus, drained by its own worker. Downstream delivery
	// (email, calendar sync) subscribes here; for now events are logged.
	bus := events.NewBus(cfg.Events.Buffer, logger)
	bus.Subscribe(func(ev events.Event) {
		logger.Info("meeting event",
			"type", ev.Type, "meeting_id", ev.MeetingID, "room_id", ev.RoomID)
	})
	go bus.Run(ctx)

	// Engine
	clk := clock.System()
	bookingSvc := booking.NewService(booking.Config{
		Meetings:      meetings,
		Rooms:         rooms,
		Users:         users,
		Devices:       devices,
		Publisher:     bus,
		Clock:         clk,
		Logger:        logger,
		CheckinWindow: cfg.Booking.CheckinWindow(),
	})
	suggestEngine := suggest.NewEngine(bookingSvc.Availability())

	deps.SetDeps(&deps.Deps{
		Config:   cfg,
		Meetings: meetings,
		Rooms:    rooms,
		Users:    users,
		Devices:  devices,
		Booking:  bookingSvc,
		Suggest:  suggestEngine,
		Bus:      bus,
	})

	// Ghost-meeting sweep, on its own schedule off the request path.
	reconciler := reconcile.New(meetings, bookingSvc, clk, logger, reconcile.Settings{
		Interval:    cfg.Reconcile.Interval(),
		GracePeriod: cfg.Reconcile.GracePeriod(),
	})
	go reconciler.Run(ctx)

	// HTTP services from the registry, configured by [http.services.*].
	services := make(map[string]service.Service)
	for _, name := range service.CoreServices {
		newFunc := service.Get(name)
		if newFunc == nil {
			logger.Error("core service not registered", "service", name)
			os.Exit(1)
		}
		conf := cfg.HTTP.Services[name]
		svc, err := newFunc(conf, logger)
		if err != nil {
			logger.Error("failed to construct service", "service", name, "error", err)
			os.Exit(1)
		}
		services[name] = svc
	}

	srv := server.New(cfg, logger, services)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
