package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/artifact"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/checker"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/config"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/graphstore/neo4j"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/logging"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/observability"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/render"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/secrets"
)

var version = "0.1.0"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	portal     string
	logLevel   string
	jsonOutput bool
}

// app is the wiring shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	audit   *observability.AuditLogger
	tracer  *observability.TracerProvider
	checker *checker.Checker
	render  *render.Renderer
	out     io.Writer
	json    bool
}

func newApp(ctx context.Context, opts *globalOptions) (*app, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if opts.portal != "" {
		cfg.Portal.URL = opts.portal
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	sm, err := secrets.NewManager(cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	cfg.ApplySecrets(ctx, sm)

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	tracer, err := observability.InitTracing(ctx, &observability.TracingConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		OTLPEndpoint:   cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	audit := observability.Audit()
	if cfg.Audit.Enabled {
		audit, err = observability.NewAuditLogger(&observability.AuditConfig{
			Enabled:    true,
			OutputPath: cfg.Audit.Output,
		})
		if err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		audit:  audit,
		tracer: tracer,
		checker: checker.New(cfg,
			checker.WithLogger(logger),
			checker.WithAuditLogger(audit),
		),
		render: render.New(),
		out:    os.Stdout,
		json:   opts.jsonOutput,
	}, nil
}

// close flushes tracing, the audit log and the logger.
func (a *app) close(ctx context.Context) {
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("tracing shutdown", zap.Error(err))
	}
	if err := a.audit.Close(); err != nil {
		a.logger.Warn("audit close", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) graphStore(ctx context.Context) (*neo4j.Store, error) {
	if !a.cfg.Neo4j.Enabled() {
		return nil, fmt.Errorf("neo4j.uri is not configured")
	}
	return neo4j.New(ctx, a.cfg.Neo4j,
		neo4j.WithLogger(a.logger.Named("neo4j")),
		neo4j.WithAuditLogger(a.audit),
	)
}

func (a *app) uploader() (*artifact.Uploader, *artifact.S3Store, error) {
	if !a.cfg.Storage.Enabled() {
		return nil, nil, fmt.Errorf("storage.endpoint is not configured")
	}
	store, err := artifact.NewS3Store(a.cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return artifact.NewUploader(store, a.cfg.Storage.Prefix,
		artifact.WithLogger(a.logger.Named("artifact")),
		artifact.WithAuditLogger(a.audit),
	), store, nil
}
