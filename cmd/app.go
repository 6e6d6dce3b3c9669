package cmd

import (
	"context"
	"fmt"

	"github.com/example/room-booking/internal/availability"
	"github.com/example/room-booking/internal/bookings"
	"github.com/example/room-booking/internal/config"
	"github.com/example/room-booking/internal/db"
	"github.com/example/room-booking/internal/events"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/migrate"
	"go.uber.org/zap"
)

// app holds what every command that touches bookings needs.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	db       *db.DB
	checker  *availability.Client
	pub      bookings.Publisher
	bookings *bookings.Service

	closers []func()
}

type appOptions struct {
	migrate  bool
	inMemory bool
	// cli commands keep stdout for their own output
	cli bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Stderr: opts.cli,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	var store bookings.Store
	if opts.inMemory {
		log.Warn("using in-memory booking store; bookings are lost on exit")
		store = bookings.NewMemStore()
	} else {
		if err := a.openDB(ctx, opts.migrate); err != nil {
			a.Close()
			return nil, err
		}
		store = bookings.NewRepo(a.db)
	}

	a.checker = availability.New(availability.Config{
		BaseURL: cfg.AvailabilityURL,
		Timeout: cfg.AvailabilityTimeout,
	}, log)

	a.pub = events.Nop{}
	if cfg.RabbitURL != "" {
		p, err := events.NewPublisher(cfg.RabbitURL, cfg.BookingExchange, log)
		if err != nil {
			// events are best effort; bookings still work without a broker
			log.Warn("booking events disabled", zap.Error(err))
		} else {
			a.pub = p
			a.closers = append(a.closers, func() { _ = p.Close() })
		}
	}

	a.bookings = bookings.NewService(store, a.checker, a.pub, log)
	return a, nil
}

func (a *app) openDB(ctx context.Context, migrateUp bool) error {
	d, err := db.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.db = d
	a.closers = append(a.closers, d.Close)

	if err := d.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	if migrateUp {
		if err := migrate.Up(ctx, d, a.log); err != nil {
			return err
		}
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
