package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/KhanhKube/hotel-management-sub000/internal/api"
	"github.com/KhanhKube/hotel-management-sub000/internal/config"
	"github.com/KhanhKube/hotel-management-sub000/internal/database"
	"github.com/KhanhKube/hotel-management-sub000/internal/domain"
	"github.com/KhanhKube/hotel-management-sub000/internal/events"
	"github.com/KhanhKube/hotel-management-sub000/internal/logging"
	"github.com/KhanhKube/hotel-management-sub000/internal/metrics"
	"github.com/KhanhKube/hotel-management-sub000/internal/models"
	"github.com/KhanhKube/hotel-management-sub000/internal/repository"
	"github.com/KhanhKube/hotel-management-sub000/internal/service"
	"github.com/KhanhKube/hotel-management-sub000/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, rooms, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Msg("Failed to create database directory")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize database")
		return err
	}
	defer db.Close()

	if err := seedRooms(context.Background(), db, rooms, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	cache := initAvailabilityCache(ctx, cfg, &logger)

	eventBus := events.NewEventBus()
	subscribeEvents(eventBus, &logger)

	bookingService := service.NewBookingService(db, cache, eventBus,
		cfg.Booking.MaxBookingDays, cfg.Maintenance.DefaultDays, &logger)
	availabilityService := service.NewAvailabilityService(db, cache,
		time.Duration(cfg.Booking.AvailabilityCacheTTL)*time.Second, &logger)
	maintenanceService := service.NewMaintenanceService(db, cache, eventBus, &logger)

	cartWorker := worker.NewCartExpiryWorker(db, cache,
		time.Duration(cfg.Booking.CartTTLMinutes)*time.Minute,
		time.Duration(cfg.Booking.CartSweepSeconds)*time.Second, &logger)
	go cartWorker.Start(ctx)

	sweepWorker := worker.NewMaintenanceSweepWorker(db, cache, *cfg.Maintenance.SweepHour, &logger)
	go sweepWorker.Start(ctx)

	cleaningWorker := worker.NewCleaningReleaseWorker(db, cache, *cfg.Maintenance.SweepHour, &logger)
	go cleaningWorker.Start(ctx)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	var apiServer *api.HTTPServer
	if cfg.API.Enabled {
		apiServer = api.NewHTTPServer(cfg.API, bookingService, availabilityService, maintenanceService, &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if apiServer != nil {
		_ = apiServer.Shutdown(shutdownCtx)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, []models.Room, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	roomsPath := os.Getenv("ROOMS_PATH")
	if roomsPath == "" {
		roomsPath = "configs/rooms.yaml"
	}
	roomsData, err := os.ReadFile(roomsPath)
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to read %s", roomsPath)
		return nil, nil, zerolog.Logger{}, closer, err
	}

	var roomsConfig struct {
		Rooms []models.Room `yaml:"rooms"`
	}
	if err := yaml.Unmarshal(roomsData, &roomsConfig); err != nil {
		logger.Error().Err(err).Msg("Failed to parse rooms.yaml")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	if err := config.ValidateRooms(roomsConfig.Rooms); err != nil {
		logger.Error().Err(err).Msg("Rooms validation failed")
		return nil, nil, zerolog.Logger{}, closer, err
	}

	return cfg, roomsConfig.Rooms, logger, closer, nil
}

func seedRooms(ctx context.Context, db *database.DB, rooms []models.Room, logger *zerolog.Logger) error {
	for i := range rooms {
		if err := db.UpsertRoom(ctx, &rooms[i]); err != nil {
			logger.Error().Err(err).Str("room_number", rooms[i].RoomNumber).Msg("Failed to seed room")
			return err
		}
	}
	logger.Info().Int("rooms", len(rooms)).Msg("Rooms seeded")
	return nil
}

func initAvailabilityCache(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) domain.AvailabilityCache {
	fallback := repository.NewMemoryAvailabilityCache()
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		logger.Info().Msg("Redis disabled, using in-memory availability cache")
		return fallback
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable at startup")
	}

	primary := repository.NewRedisAvailabilityCache(client)
	return repository.NewFailoverAvailabilityCache(primary, fallback, logger)
}

func subscribeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	audit := func(event *events.Event) error {
		logger.Info().
			Str("event", event.Type).
			RawJSON("payload", event.Payload).
			Msg("Domain event")
		return nil
	}

	for _, eventType := range []string{
		events.EventCartAdded,
		events.EventCheckoutCompleted,
		events.EventBookingReserved,
		events.EventBookingOccupied,
		events.EventBookingCheckedOut,
		events.EventBookingCompleted,
		events.EventBookingCancelled,
		events.EventMaintenanceOpened,
		events.EventMaintenanceClosed,
		events.EventRoomStatusChanged,
	} {
		bus.Subscribe(eventType, audit)
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("Metrics server error")
	}
}
