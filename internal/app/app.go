// -----------------------------------------------------------------------
// Last Modified: Tuesday, 18th August 2026 9:42:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/edgar"
	"github.com/ternarybob/caveo/internal/handlers"
	"github.com/ternarybob/caveo/internal/httpclient"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/logs"
	"github.com/ternarybob/caveo/internal/quotes"
	"github.com/ternarybob/caveo/internal/services/dashboard"
	"github.com/ternarybob/caveo/internal/services/evaluator"
	"github.com/ternarybob/caveo/internal/services/events"
	"github.com/ternarybob/caveo/internal/services/notify"
	"github.com/ternarybob/caveo/internal/services/scheduler"
	"github.com/ternarybob/caveo/internal/services/status"
	"github.com/ternarybob/caveo/internal/services/transform"
	"github.com/ternarybob/caveo/internal/storage/badger"
	"github.com/ternarybob/caveo/internal/watchlist"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage and event bus
	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	LogConsumer    *logs.Consumer

	// Domain services
	EdgarService     interfaces.EdgarService
	QuoteService     interfaces.PriceDataProvider
	TransformService interfaces.TransformService
	WatchlistService interfaces.WatchlistService
	EvaluatorService interfaces.EvaluatorService
	DashboardService interfaces.DashboardService
	NotifyService    interfaces.NotifyService
	SchedulerService interfaces.SchedulerService
	StatusService    *status.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	StatusHandler    *handlers.StatusHandler
	CompanyHandler   *handlers.CompanyHandler
	EventsHandler    *handlers.EventsHandler
	EvaluateHandler  *handlers.EvaluateHandler
	RunsHandler      *handlers.RunsHandler
	DashboardHandler *handlers.DashboardHandler
	WSHandler        *handlers.WebSocketHandler
	EventSubscriber  *handlers.EventSubscriber
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Event bus first: every later service publishes or subscribes.
	app.EventService = events.NewService(app.Logger)

	// Log consumer captures correlated lines into run-log storage and
	// republishes warn+ lines on the bus for the UI stream.
	logConsumer := logs.NewConsumer(
		app.StorageManager.RunLogStorage(),
		app.EventService,
		app.Logger,
		app.Config.Logging.MinEventLevel,
	)
	if err := logConsumer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start log consumer: %w", err)
	}
	app.LogConsumer = logConsumer

	// Route correlated logger output through the consumer channel.
	app.Logger.SetChannel("context", logConsumer.GetChannel())

	// Mirror bus traffic into the debug log.
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe logger to events")
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	// Seed storage from the watch-list file. A missing or invalid file
	// is not fatal; companies can still arrive via the API.
	if count, err := app.WatchlistService.Sync(context.Background()); err != nil {
		app.Logger.Warn().Err(err).Str("path", cfg.Watchlist.Path).Msg("Watch-list sync failed")
	} else {
		app.Logger.Info().Int("companies", count).Msg("Watch-list synced into storage")
	}

	// Refresh the exported dashboard after every completed batch so
	// API-triggered runs update the file too, not just scheduled ones.
	app.EventService.Subscribe(interfaces.EventRunCompleted, func(ctx context.Context, event interfaces.Event) error {
		path, err := app.DashboardService.Export(context.Background())
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Dashboard export after run failed")
			return nil
		}
		app.Logger.Debug().Str("path", path).Msg("Dashboard exported after run")
		return nil
	})

	if cfg.Scheduler.Enabled {
		if err := app.SchedulerService.Start(); err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		app.Logger.Info().Msg("Scheduler disabled by configuration")
	}

	logger.Info().
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order.
func (a *App) initServices() error {
	// Transform service (filing body to markdown)
	a.TransformService = transform.NewService(a.Logger)

	// EDGAR client. The SEC requires an identifying user agent; startup
	// fails without one.
	edgarOpts := []edgar.ClientOption{edgar.WithLogger(a.Logger)}
	if a.Config.Edgar.RateLimit > 0 {
		edgarOpts = append(edgarOpts, edgar.WithRateLimit(a.Config.Edgar.RateLimit))
	}
	if a.Config.Edgar.RequestTimeout > 0 {
		edgarOpts = append(edgarOpts, edgar.WithTimeout(a.Config.Edgar.RequestTimeout))
	}
	if a.Config.Edgar.DataBaseURL != "" {
		edgarOpts = append(edgarOpts, edgar.WithDataBaseURL(a.Config.Edgar.DataBaseURL))
	}
	if a.Config.Edgar.ArchiveBaseURL != "" {
		edgarOpts = append(edgarOpts, edgar.WithArchiveBaseURL(a.Config.Edgar.ArchiveBaseURL))
	}
	edgarClient, err := edgar.NewClient(a.Config.Edgar.UserAgent, edgarOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize EDGAR client: %w", err)
	}
	a.EdgarService = edgarClient
	a.Logger.Debug().Str("user_agent", a.Config.Edgar.UserAgent).Msg("EDGAR client initialized")

	// Stooq quote client for dashboard price overlays. Optional; the
	// dashboard degrades to null price fields without it.
	if a.Config.Quotes.Enabled {
		quoteOpts := []quotes.ClientOption{
			quotes.WithLogger(a.Logger),
			quotes.WithWindow(a.Config.Dashboard.QuoteDays, a.Config.Dashboard.QuoteRows),
		}
		if a.Config.Quotes.BaseURL != "" {
			quoteOpts = append(quoteOpts, quotes.WithBaseURL(a.Config.Quotes.BaseURL))
		}
		if a.Config.Quotes.RateLimit > 0 {
			quoteOpts = append(quoteOpts, quotes.WithRateLimit(a.Config.Quotes.RateLimit))
		}
		if a.Config.Quotes.RequestTimeout > 0 {
			quoteOpts = append(quoteOpts, quotes.WithHTTPClient(httpclient.NewDefaultHTTPClient(a.Config.Quotes.RequestTimeout)))
		}
		a.QuoteService = quotes.NewClient(quoteOpts...)
		a.Logger.Debug().Msg("Quote client initialized")
	} else {
		a.Logger.Info().Msg("Quotes disabled; dashboard price fields will be null")
	}

	// Watch-list service (companies.yaml <-> storage)
	a.WatchlistService = watchlist.NewService(
		a.Config.Watchlist.Path,
		a.StorageManager.CompanyStorage(),
		a.Logger,
	)

	// Notifier posts state transitions to the configured webhook.
	notifyService := notify.NewService(a.Config.Notify, a.Logger)
	a.NotifyService = notifyService
	if err := notify.SubscribeToStateChanges(a.EventService, notifyService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe notifier: %w", err)
	}
	if !notifyService.Enabled() {
		a.Logger.Info().Msg("Notify webhook not configured; transitions logged only")
	}

	// Evaluator runs the disclosure pipeline.
	a.EvaluatorService = evaluator.NewService(
		a.StorageManager,
		a.EdgarService,
		a.TransformService,
		a.EventService,
		a.Config.Edgar,
		a.Config.Evaluator,
		a.Logger,
	)

	// Dashboard snapshot builder and exporter.
	a.DashboardService = dashboard.NewService(
		a.StorageManager,
		a.QuoteService,
		a.Config.Dashboard,
		a.Logger,
	)

	// Status service derives idle/evaluating from run events.
	a.StatusService = status.NewService(a.EventService, a.Logger)
	a.StatusService.SubscribeToRunEvents()

	// Scheduler. Jobs are registered here and started by New once all
	// wiring is in place.
	a.SchedulerService = scheduler.NewService(a.Logger)

	if err := a.SchedulerService.RegisterJob(
		scheduler.JobEvaluate,
		a.Config.Scheduler.EvaluateSchedule,
		"Evaluate the watch-list against latest disclosures",
		func() error {
			_, err := a.EvaluatorService.EvaluateAll(context.Background())
			return err
		},
	); err != nil {
		return fmt.Errorf("failed to register evaluation job: %w", err)
	}

	if err := a.SchedulerService.RegisterJob(
		scheduler.JobExportDashboard,
		a.Config.Scheduler.ExportSchedule,
		"Export the dashboard snapshot to disk",
		func() error {
			_, err := a.DashboardService.Export(context.Background())
			return err
		},
	); err != nil {
		return fmt.Errorf("failed to register dashboard export job: %w", err)
	}

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler()
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)
	a.CompanyHandler = handlers.NewCompanyHandler(a.WatchlistService, a.StorageManager, a.EdgarService, a.Logger)
	a.EventsHandler = handlers.NewEventsHandler(a.StorageManager, a.Logger)
	a.EvaluateHandler = handlers.NewEvaluateHandler(a.EvaluatorService, a.Logger)
	a.RunsHandler = handlers.NewRunsHandler(a.StorageManager, a.Logger)
	a.DashboardHandler = handlers.NewDashboardHandler(a.DashboardService, a.Logger)

	// Websocket hub plus the bus bridge that feeds it.
	a.WSHandler = handlers.NewWebSocketHandler(a.Logger)
	a.EventSubscriber = handlers.NewEventSubscriber(a.WSHandler, a.EventService, a.Logger, &a.Config.WebSocket)

	a.Logger.Debug().Msg("Handlers initialized")
	return nil
}

// Close closes all application resources in reverse construction order.
func (a *App) Close() error {
	if a.StatusService != nil {
		a.StatusService.SetState(status.StateOffline, nil)
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler")
		}
	}

	if a.WSHandler != nil {
		a.WSHandler.Close()
		a.Logger.Info().Msg("WebSocket clients disconnected")
	}

	if a.LogConsumer != nil {
		if err := a.LogConsumer.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop log consumer")
		} else {
			a.Logger.Info().Msg("Log consumer stopped")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
