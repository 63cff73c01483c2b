// Package main runs a body tracking station: it reads tracked frames from
// the configured source, posts non-empty snapshots to the ingestion endpoint
// and serves metrics and stats on the local HTTP address.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/bodytrack/internal/adapters/http/api"
	"github.com/okian/bodytrack/internal/adapters/sensor"
	"github.com/okian/bodytrack/internal/adapters/transmit"
	app "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/config"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the station's own metrics are exported.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		os.Stderr.WriteString("bodytrack: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get().Named("main")
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opener, err := newOpener(cfg)
	if err != nil {
		return err
	}
	session, err := sensor.Open(ctx, opener, sensor.WithWaitTimeout(cfg.DeviceTimeout()))
	if err != nil {
		log.Error(ctx, "failed to open device", logger.String("source", cfg.Source), logger.Error(err))
		return err
	}
	defer func() { _ = session.Close() }()

	tx, err := transmit.NewHTTP(cfg.EndpointURL, transmit.WithTimeout(cfg.SendTimeout()))
	if err != nil {
		return err
	}

	svc := app.New(tx,
		app.WithLogger(logger.Get().Named("delivery")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxSendsPerSecond(cfg.MaxSendsPerSec),
	)
	// Delivery outlives the acquisition context so queued documents can drain.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start delivery: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		svc.Stop(shutdownCtx)
	}()

	ctrl := app.NewController(session, svc, app.WithThrottleInterval(cfg.ThrottleInterval()))
	srv := newHTTPServer(ctx, cfg.Addr, ctrl)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(gctx, "server shutdown failed", logger.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error(ctx, "station stopped", logger.Error(err))
		return err
	}
	log.Info(ctx, "station stopped")
	return nil
}

// newOpener selects the frame source named in cfg.
func newOpener(cfg *config.Config) (sensor.Opener, error) {
	switch cfg.Source {
	case config.SourceZMQ:
		return sensor.OpenZMQ(cfg.ZMQEndpoint), nil
	case config.SourceSim:
		return sensor.OpenSim(cfg.SimBodies, cfg.SimFrameRate), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", config.ErrInvalidConfig, cfg.Source)
	}
}

func newHTTPServer(ctx context.Context, addr string, stats api.StatsProvider) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(stats).Register(ctx, mux)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater periodically records process metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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
