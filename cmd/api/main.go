// Package main is the entry point for the ritlog API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // report time zone must resolve on minimal images

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/ritlog/internal/config"
	"github.com/pkordes/ritlog/internal/handler"
	"github.com/pkordes/ritlog/internal/middleware"
	"github.com/pkordes/ritlog/internal/notify"
	"github.com/pkordes/ritlog/internal/repo"
	"github.com/pkordes/ritlog/internal/service"
	"github.com/pkordes/ritlog/migrations"
	"github.com/pkordes/ritlog/openapi"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return fmt.Errorf("report timezone: %w", err)
	}

	// --- Database ---------------------------------------------------------
	if cfg.MigrateOnStart {
		n, err := migrations.Up(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "count", n)
	}

	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	vehicles := repo.NewVehicleRepo(pool)
	trips := repo.NewTripRepo(pool)
	readings := repo.NewReadingRepo(pool)
	jobs := repo.NewJobRepo(pool)

	checks := []handler.DependencyCheck{{Name: "postgres", Check: pool.Ping}}

	// --- Notifications ----------------------------------------------------
	// The notifier receives events from trip registration; the dispatcher
	// drains whatever lands in the job queue to the forwarder.
	var (
		notifier  service.Notifier = jobs
		forwarder notify.Forwarder = notify.NewLogForwarder(logger)
	)
	switch cfg.NotifySink {
	case config.SinkRabbitMQ:
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("rabbitmq connect: %w", err)
		}
		defer conn.Close()
		pub, err := notify.NewAMQPPublisher(conn)
		if err != nil {
			return err
		}
		defer pub.Close()
		notifier, forwarder = pub, pub
		checks = append(checks, handler.DependencyCheck{Name: "rabbitmq", Check: func(context.Context) error {
			if conn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}})
		logger.Info("publishing events to rabbitmq", "exchange", notify.ExchangeName)

	case config.SinkMQTT:
		opts := mqtt.NewClientOptions().
			AddBroker(cfg.MQTTBroker).
			SetClientID(cfg.MQTTClientID).
			SetAutoReconnect(true)
		client := mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("mqtt connect: %w", token.Error())
		}
		defer client.Disconnect(250)
		pub := notify.NewMQTTPublisher(client)
		notifier, forwarder = pub, pub
		checks = append(checks, handler.DependencyCheck{Name: "mqtt", Check: func(context.Context) error {
			if !client.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}})
		logger.Info("publishing events to mqtt", "broker", cfg.MQTTBroker)
	}

	// --- Services ---------------------------------------------------------
	var locker service.VehicleLocker = service.NewKeyedLocker()
	if cfg.LockMode == config.LockAdvisory {
		// Lock holders get their own connections so they never wait on the
		// pool their own queries need.
		lockCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("parse lock pool config: %w", err)
		}
		lockCfg.MaxConns = cfg.LockPoolSize
		lockPool, err := pgxpool.NewWithConfig(ctx, lockCfg)
		if err != nil {
			return fmt.Errorf("create lock pool: %w", err)
		}
		defer lockPool.Close()
		locker = repo.NewAdvisoryLocker(lockPool)
	}

	srv := handler.NewServer(
		service.NewVehicleService(vehicles),
		service.NewReadingService(vehicles, readings, trips, locker, logger),
		service.NewTripService(vehicles, trips, readings, locker, notifier, logger),
		service.NewReportService(vehicles, trips, loc),
		handler.WithHealthChecks(checks...),
		handler.WithOpenAPI(openapi.Document),
	)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID, RealIP, Logger, Recoverer,
	// CORS, body limit, rate limit. RealIP runs before the rate limiter so
	// clients are keyed by their forwarded address.
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	if cfg.RateLimitPerMinute > 0 {
		r.Use(limiter.Handler)
	}
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return notify.NewDispatcher(jobs, forwarder, cfg.DispatchInterval, logger).Run(gctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	})
	g.Go(func() error {
		// Graceful shutdown: on signal (or a failed worker) give in-flight
		// requests up to 15 seconds to complete.
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
