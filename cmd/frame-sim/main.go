// Package main provides frame-sim, a stand-in for the tracker bridge that
// publishes synthetic body frames over ZeroMQ. Its sink command stands in
// for the ingestion endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/urfave/cli/v2"

	"github.com/okian/bodytrack/internal/adapters/sensor"
	"github.com/okian/bodytrack/internal/framesim"
	"github.com/okian/bodytrack/pkg/logger"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  "frame-sim",
		Usage: "Publish synthetic tracked body frames for a bodytrack station",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bind",
				Aliases: []string{"b"},
				Usage:   "ZeroMQ PUSH endpoint to bind",
				EnvVars: []string{"FRAMESIM_BIND"},
				Value:   "tcp://*:5556",
			},
			&cli.IntFlag{
				Name:  "bodies",
				Usage: "Maximum number of simulated bodies",
				Value: 3,
			},
			&cli.Float64Flag{
				Name:  "fps",
				Usage: "Frames per second",
				Value: 30,
			},
			&cli.DurationFlag{
				Name:  "phase",
				Usage: "How long each visible-body count lasts",
				Value: 5 * time.Second,
			},
			&cli.Uint64Flag{
				Name:  "frames",
				Usage: "Stop after this many frames (0 = run until interrupted)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
				Value: "info",
			},
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:  "sink",
				Usage: "Accept and log snapshot documents like an ingestion endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "HTTP listen address",
						EnvVars: []string{"FRAMESIM_SINK_ADDR"},
						Value:   "127.0.0.1:8000",
					},
				},
				Action: runSink,
			},
		},
	}
}

func initLogging(level string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

func run(c *cli.Context) error {
	if err := initLogging(c.String("log-level")); err != nil {
		return err
	}

	synth, err := synthFromFlags(c.Int("bodies"), c.Float64("fps"), c.Duration("phase"))
	if err != nil {
		return err
	}

	sock, err := zmq4.NewSocket(zmq4.PUSH)
	if err != nil {
		return fmt.Errorf("create socket: %w", err)
	}
	defer sock.Close()
	if err := sock.SetLinger(0); err != nil {
		return fmt.Errorf("set linger: %w", err)
	}
	if err := sock.SetSndhwm(int(c.Float64("fps")) + 1); err != nil {
		return fmt.Errorf("set send hwm: %w", err)
	}
	if err := sock.Bind(c.String("bind")); err != nil {
		return fmt.Errorf("bind %s: %w", c.String("bind"), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Get().Named("frame-sim").Info(ctx, "bound", logger.String("endpoint", c.String("bind")))
	pub := framesim.New(sock, synth, framesim.WithFrameLimit(c.Uint64("frames")))
	return pub.Run(ctx)
}

func runSink(c *cli.Context) error {
	if err := initLogging(c.String("log-level")); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get().Named("sink")
	srv := newSinkServer(c.String("addr"), framesim.NewIngest(log))
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "listening", logger.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sink server: %w", err)
	}
	return nil
}

func newSinkServer(addr string, ingest *framesim.Ingest) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/", ingest)
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func synthFromFlags(bodies int, fps float64, phase time.Duration) (sensor.Synth, error) {
	if bodies < 0 {
		return sensor.Synth{}, fmt.Errorf("bodies must not be negative, got %d", bodies)
	}
	if fps <= 0 {
		return sensor.Synth{}, fmt.Errorf("fps must be positive, got %v", fps)
	}
	interval := time.Duration(float64(time.Second) / fps)
	phaseFrames := uint64(1)
	if phase > interval {
		phaseFrames = uint64(phase / interval)
	}
	return sensor.Synth{MaxBodies: bodies, PhaseFrames: phaseFrames, Interval: interval}, nil
}
