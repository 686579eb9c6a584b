// Package app assembles the store, calendar, reminder ledger and task service
// from configuration and owns their lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/existflow/tasknest/internal/calendar"
	"github.com/existflow/tasknest/internal/config"
	"github.com/existflow/tasknest/internal/ledger"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/service"
	"github.com/existflow/tasknest/internal/store"
)

// App holds the wired components
type App struct {
	Config *config.Config
	DB     *store.DB
	Ledger *ledger.Ledger
	Tasks  *service.Tasks
}

// Option adjusts how the app is built
type Option func(*options)

type options struct {
	calendar    ledger.Calendar
	calendarSet bool
	serviceOpts []service.Option
}

// WithCalendar uses cal instead of building a Google client. A nil cal runs
// without a calendar.
func WithCalendar(cal ledger.Calendar) Option {
	return func(o *options) {
		o.calendar = cal
		o.calendarSet = true
	}
}

// WithServiceOptions passes extra options to the task service
func WithServiceOptions(opts ...service.Option) Option {
	return func(o *options) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// InitLogger initializes the global logger from cfg
func InitLogger(cfg *config.Config) error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.LogLevel)
	logCfg.FilePath = cfg.LogFile
	logCfg.Console = cfg.LogConsole
	return logger.Init(logCfg)
}

// New opens the database, builds the calendar client and loads the task tree.
// Missing Google credentials are logged and leave reminders disabled.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	dbURL := cfg.DatabaseURL
	if dbURL == "" {
		path, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		dbURL = path
	}
	db, err := store.Open(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	logger.Info("Database opened", logger.F("dialect", db.Dialect()))

	cal := o.calendar
	if !o.calendarSet {
		cal = openCalendar(ctx, cfg.Google)
	}

	led := ledger.New(db, cal,
		ledger.WithTimeout(cfg.CalendarTimeout),
		ledger.WithLogger(logger.WithFields(logger.F("component", "ledger"))),
	)

	svcOpts := append([]service.Option{
		service.WithDebounce(cfg.SaveDebounce),
		service.WithReminders(led),
		service.WithLogger(logger.WithFields(logger.F("component", "tasks"))),
	}, o.serviceOpts...)
	tasks := service.New(db, svcOpts...)

	if err := tasks.Load(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	return &App{Config: cfg, DB: db, Ledger: led, Tasks: tasks}, nil
}

// openCalendar returns nil, not an error, when the calendar cannot be used
func openCalendar(ctx context.Context, cfg config.GoogleConfig) ledger.Calendar {
	if !cfg.Configured() {
		logger.Warn("Google API credentials are not configured, reminders are disabled")
		return nil
	}
	cal, err := calendar.New(ctx, cfg)
	if err != nil {
		logger.Warn("Google Calendar unavailable, reminders are disabled", logger.F("error", err))
		return nil
	}
	logger.Info("Google Calendar configured", logger.F("calendar_id", cfg.CalendarID))
	return cal
}

// Close saves pending changes and closes the database
func (a *App) Close(ctx context.Context) error {
	flushErr := a.Tasks.Close(ctx)
	if flushErr != nil {
		logger.Error("Failed to save tasks on close", logger.F("error", flushErr))
	}
	if err := a.DB.Close(); err != nil {
		return err
	}
	return flushErr
}
