package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	temporalclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/checker"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/config"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/logging"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/secrets"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/server"
	temporalmod "github.com/cmesserich-br/ago-dependency-checker-app/internal/temporal"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "Config file path (YAML)")
	healthAddr := flag.String("health-addr", ":8081", "Address for health probes and metrics; empty disables")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	sm, err := secrets.NewManager(cfg.Secrets)
	if err != nil {
		log.Fatalf("secrets: %v", err)
	}
	cfg.ApplySecrets(context.Background(), sm)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	tracer, err := observability.InitTracing(context.Background(), &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName + "-worker",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	audit := observability.Audit()
	if cfg.Audit.Enabled {
		if audit, err = observability.NewAuditLogger(&observability.AuditConfig{Enabled: true, OutputPath: cfg.Audit.Output}); err != nil {
			logger.Fatal("audit", zap.Error(err))
		}
	}

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Checker: checker.New(cfg, checker.WithLogger(logger), checker.WithAuditLogger(audit)),
		Logger:  logger.Named("activity"),
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Fatal("temporal client", zap.Error(err))
	}

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		logger.Fatal("worker", zap.Error(err))
	}
	logger.Info("worker started", zap.String("task_queue", cfg.Temporal.TaskQueue))

	sh := server.NewShutdownHandler(&server.ShutdownConfig{Logger: logger})
	sh.Add(server.TemporalWorkerShutdownHook(w.Stop))
	sh.Add(server.TemporalClientShutdownHook(c.Close))
	sh.Add(server.TracingShutdownHook(tracer.Shutdown))
	sh.Add(server.AuditLoggerShutdownHook(audit.Close))

	if *healthAddr != "" {
		health := server.NewHealthServer(version)
		health.RegisterCheck("temporal", server.TemporalHealthChecker(func(ctx context.Context) error {
			_, err := c.CheckHealth(ctx, &temporalclient.CheckHealthRequest{})
			return err
		}))
		health.SetReady(true)

		router := chi.NewRouter()
		router.Use(server.RequestLogger(logger))
		health.Routes(router)
		router.Handle("/metrics", observability.MetricsHandler())

		hs := &http.Server{Addr: *healthAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
		sh.Add(server.HTTPServerShutdownHook("health", hs.Shutdown))
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("health server", zap.Error(err))
			}
		}()
	}

	sh.Start()
	sh.Wait()
	logger.Info("worker stopped")
	_ = logger.Sync()
}
