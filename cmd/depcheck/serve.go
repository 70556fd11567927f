package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cmesserich-br/ago-dependency-checker-app/internal/itemref"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/server"
	"github.com/cmesserich-br/ago-dependency-checker-app/internal/session"
)

func runServe(ctx context.Context, opts *globalOptions, addr string) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	if addr != "" {
		a.cfg.Server.Addr = addr
	}
	log := a.logger

	sess := session.New(a.cfg.Portal.URL)
	if tok, err := a.checker.ConfiguredToken(ctx, a.cfg.Portal.URL); err != nil {
		log.Warn("configured token unavailable", zap.Error(err))
	} else if tok.Value != "" {
		sess.SetPortal(itemref.EnsurePortal(a.cfg.Portal.URL))
		sess.SetToken(tok)
	}

	health := server.NewHealthServer(version)
	health.RegisterCheck("portal", server.PortalHealthChecker(
		itemref.EnsurePortal(a.cfg.Portal.URL), &http.Client{Timeout: 5 * time.Second}))

	sh := server.NewShutdownHandler(&server.ShutdownConfig{Logger: log})

	apiOpts := []server.APIOption{
		server.WithLogger(log.Named("api")),
		server.WithAuditLogger(a.audit),
	}
	if a.cfg.Neo4j.Enabled() {
		gs, err := a.graphStore(ctx)
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, server.WithGraphStore(gs))
		health.RegisterCheck("neo4j", server.DependencyHealthChecker("Neo4j", gs.Ping))
		sh.Add(server.GraphStoreShutdownHook(gs.Close))
	}
	if a.cfg.Storage.Enabled() {
		up, store, err := a.uploader()
		if err != nil {
			return err
		}
		apiOpts = append(apiOpts, server.WithUploader(up))
		health.RegisterCheck("storage", server.DependencyHealthChecker("Object storage", store.Ping))
	}

	api := server.NewAPI(a.checker, sess, apiOpts...)
	srv := server.New(a.cfg.Server, api, health, log)

	sh.Add(server.HTTPServerShutdownHook("api", srv.Shutdown))
	sh.Add(server.TracingShutdownHook(a.tracer.Shutdown))
	sh.Add(server.AuditLoggerShutdownHook(a.audit.Close))

	l, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return err
	}
	log.Info("depcheck serving",
		zap.String("addr", l.Addr().String()),
		zap.String("portal", sess.Portal()),
		zap.String("session_id", sess.ID()),
	)

	sh.Start()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case err = <-errCh:
		// Serve failed on its own; run the remaining hooks.
		sh.Shutdown()
		sh.Wait()
	case <-sh.ShutdownCh():
		sh.Wait()
		err = <-errCh
	}
	_ = log.Sync()
	return err
}
