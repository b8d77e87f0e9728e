package internal

import (
	"context"
	"fmt"
	"handsoff/internal/controllers"
	"handsoff/internal/dispatch"
	"handsoff/internal/providers"
	"handsoff/internal/services"
	"handsoff/internal/storage"
	"handsoff/internal/storage/interfaces"
	"handsoff/internal/structures"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer   *http.Server
	conf        *structures.Config
	logger      providers.Logger
	scheduler   interfaces.SchedulerInterface
	alerts      services.AlertCoordinatorInterface
	sync        services.SyncManagerInterface
	queue       *dispatch.Queue
	fileManager *storage.FileManager
	recorder    *services.RecordAlertObserver
	observers   []services.ObserverToken
}

func NewApp(
	apiController *controllers.ApiController,
	healthController *controllers.HealthController,
	scheduler interfaces.SchedulerInterface,
	alerts services.AlertCoordinatorInterface,
	sync services.SyncManagerInterface,
	queue *dispatch.Queue,
	fileManager *storage.FileManager,
	recordObserver *services.RecordAlertObserver,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
) *App {
	// Inner mux: API routes
	apiMux := http.NewServeMux()
	for _, route := range router.GetRoutes() {
		apiMux.Handle(route.Url, route.Handler)
	}

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", providers.MetricsMiddleware(metrics, router, apiMux))

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:        conf,
		logger:      logger,
		scheduler:   scheduler,
		alerts:      alerts,
		sync:        sync,
		queue:       queue,
		fileManager: fileManager,
		recorder:    recordObserver,
	}

	app.observers = []services.ObserverToken{
		alerts.AddObserver(services.NewLoggingAlertObserver(logger)),
		alerts.AddObserver(services.NewMetricsAlertObserver(metrics)),
		alerts.AddObserver(recordObserver),
	}
	return app
}

// Run restores pending records, starts background sync and serves HTTP
// until SIGINT or SIGTERM.
func (app *App) Run() error {
	app.logger.Infof(providers.TypeApp, "Starting %s on %s", app.conf.AppName, app.conf.Sync.DeviceName)
	if err := app.scheduler.Restore(); err != nil {
		app.logger.Errorf(providers.TypeApp, "Restore error: %s", err)
	}
	app.scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s", app.WebServer.Addr)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		app.logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		app.scheduler.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	return app.Shutdown()
}

// Shutdown stops intake, delivers outstanding alert notifications and
// writes what is still pending to disk.
func (app *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.WebServer.Shutdown(ctx); err != nil {
		return err
	}
	app.scheduler.Stop()

	app.queue.Close()
	for _, token := range app.observers {
		app.alerts.RemoveObserver(token)
	}
	app.recorder.Wait()

	err := app.scheduler.Persist()
	app.sync.Close()
	app.fileManager.Close()
	if err != nil {
		return err
	}
	app.logger.Infof(providers.TypeApp, "gracefully stopped, %d records pending", app.sync.PendingCount())
	return nil
}
