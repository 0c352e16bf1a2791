package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/school-timetable/internal/application"
	"github.com/example/school-timetable/internal/config"
	httptransport "github.com/example/school-timetable/internal/http"
	"github.com/example/school-timetable/internal/logging"
	"github.com/example/school-timetable/internal/persistence"
	"github.com/example/school-timetable/internal/persistence/memory"
	"github.com/example/school-timetable/internal/persistence/postgres"
	"github.com/example/school-timetable/internal/persistence/sqlite"
)

// backend is the storage selected by TIMETABLE_DATABASE_DRIVER.
type backend struct {
	driver  string
	slots   persistence.SlotRepository
	rooms   persistence.RoomRepository
	events  persistence.OutboxRepository
	pinger  httptransport.Pinger
	migrate func(ctx context.Context, logger *slog.Logger) error
	close   func() error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		store := memory.New()
		return &backend{
			driver: cfg.DatabaseDriver,
			slots:  store,
			rooms:  store,
			events: store,
			close:  store.Close,
		}, nil
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &backend{
			driver:  cfg.DatabaseDriver,
			slots:   store,
			rooms:   store,
			events:  store,
			pinger:  store,
			migrate: store.Migrate,
			close:   store.Close,
		}, nil
	case config.DriverSQLite, "":
		store, err := sqlite.Open(ctx, sqlite.DefaultConfig(cfg.SQLiteDSN))
		if err != nil {
			return nil, err
		}
		return &backend{
			driver:  config.DriverSQLite,
			slots:   store,
			rooms:   store,
			events:  store,
			pinger:  store,
			migrate: store.Migrate,
			close:   store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// Migrate applies pending schema migrations. The memory driver has no schema.
func (b *backend) Migrate(ctx context.Context, logger *slog.Logger) error {
	if b.migrate == nil {
		logger.InfoContext(ctx, "driver has no schema to migrate", "driver", b.driver)
		return nil
	}
	return b.migrate(ctx, logger)
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// app holds the wired services shared by the subcommands.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	backend   *backend
	timetable *application.TimetableService
	rooms     *application.RoomService
}

func loadApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.LoadFile(opts.envFile)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, logOut)

	store, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, backend: store}
	a.wireServices()
	return a, nil
}

func (a *app) wireServices() {
	idGenerator := uuid.NewString
	now := time.Now

	a.rooms = application.NewRoomServiceWithConfig(a.backend.rooms, a.backend.slots, idGenerator, now, application.RoomServiceConfig{
		StatsTTL: a.cfg.StatsCacheTTL,
		Logger:   a.logger,
	})

	var notifier application.Notifier
	if a.backend.driver == config.DriverMemory {
		notifier = application.NewLogNotifier(a.logger)
	} else {
		notifier = application.NewOutboxNotifier(a.backend.events, idGenerator, now)
	}

	a.timetable = application.NewTimetableServiceWithConfig(a.backend.slots, a.backend.rooms, notifier, idGenerator, now, application.TimetableConfig{
		Policy:         application.RecurrencePolicy(a.cfg.RecurrencePolicy),
		Horizon:        a.cfg.RecurrenceHorizon,
		MaxOccurrences: a.cfg.RecurrenceMaxOccurrences,
		Logger:         a.logger,
		OnSlotsChanged: a.rooms.InvalidateStats,
	})
}

func (a *app) router() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Slots:  httptransport.NewSlotHandler(a.timetable, a.logger),
		Rooms:  httptransport.NewRoomHandler(a.rooms, a.logger),
		Health: a.backend.pinger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.RequirePrincipal(a.logger),
		},
	})
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}
