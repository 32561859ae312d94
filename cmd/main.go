package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/loadboard/internal/adapters/feed"
	"github.com/okian/loadboard/internal/adapters/http/api"
	"github.com/okian/loadboard/internal/adapters/http/live"
	"github.com/okian/loadboard/internal/adapters/http/site"
	"github.com/okian/loadboard/internal/adapters/http/swagger"
	"github.com/okian/loadboard/internal/adapters/repository"
	app "github.com/okian/loadboard/internal/app"
	"github.com/okian/loadboard/internal/config"
	"github.com/okian/loadboard/pkg/logger"
	"github.com/okian/loadboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
	memoryDBPath              = ":memory:"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "loadboard exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("log format: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	src, eventLog, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	if eventLog != nil {
		defer func() {
			if err := eventLog.Close(); err != nil {
				log.Warn(ctx, "closing event log failed", logger.Error(err))
			}
		}()
	}

	hub := live.NewHub()
	hub.Start(ctx)
	defer hub.Stop()

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithSource(src),
		app.WithCacheTTL(cfg.CacheTTL),
		app.WithRefreshInterval(cfg.RefreshInterval),
		app.WithAutoRefresh(cfg.AutoRefresh),
		app.WithParallelism(cfg.ReconstructParallelism),
		app.WithNotifier(hub),
	}
	if eventLog != nil {
		opts = append(opts,
			app.WithEventLog(eventLog),
			app.WithQueueSize(cfg.EventQueueSize),
			app.WithWorkerCount(cfg.WorkerCount),
			app.WithDedupeSize(cfg.DedupeSize),
		)
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	if fs, ok := src.(*feed.FileSource); ok && cfg.WatchFeedFile {
		w := feed.NewWatcher(fs.Path(), svc, func(ctx context.Context) {
			if _, err := svc.Refresh(ctx, false); err != nil {
				log.Warn(ctx, "refresh after feed change failed", logger.Error(err))
			}
		}, log.Named("feed.watcher"))
		if err := w.Start(ctx); err != nil {
			log.Warn(ctx, "feed file watch disabled", logger.String("path", fs.Path()), logger.Error(err))
		} else {
			defer w.Stop()
		}
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, hub),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("feed", src.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// buildSource selects the feed named by cfg.FeedType. The event log is
// returned only for the eventlog feed; push ingestion is off otherwise.
func buildSource(ctx context.Context, cfg *config.Config) (feed.Source, repository.EventLog, error) {
	switch cfg.FeedType {
	case config.FeedCSVURL:
		return feed.NewHTTPSource(cfg.FeedURL,
			feed.WithTimeout(cfg.FeedTimeout),
			feed.WithRetry(cfg.FeedMaxRetries, cfg.FeedBackoff, cfg.FeedMaxBackoff),
			feed.WithHTTPLogger(logger.Named("feed.http")),
		), nil, nil
	case config.FeedCSVFile:
		return feed.NewFileSource(cfg.FeedPath), nil, nil
	case config.FeedEventLog:
		var log repository.EventLog
		if cfg.DBPath == memoryDBPath {
			log = repository.NewMemoryEventLog()
		} else {
			sqlite, err := repository.OpenSQLite(ctx, cfg.DBPath, repository.WithLogger(logger.Named("repository")))
			if err != nil {
				return nil, nil, fmt.Errorf("open event log: %w", err)
			}
			log = sqlite
		}
		return repository.Source(log), log, nil
	default:
		return nil, nil, fmt.Errorf("%w: feed_type %q", config.ErrInvalidConfig, cfg.FeedType)
	}
}

// newMux wires every HTTP surface of the process.
func newMux(ctx context.Context, svc *app.Service, hub *live.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)
	mux.Handle("/ws", hub)
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.GaugeRefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics copies ingestion gauges out of the service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueCap, ok := stats["queueCapacity"].(int); ok {
		metrics.UpdateQueueCapacity(queueCap)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
