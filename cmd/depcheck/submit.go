package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	temporalmod "github.com/cmesserich-br/ago-dependency-checker-app/internal/temporal"
)

// runSubmit starts ResolveWorkflow on the configured task queue and waits
// for its result.
func runSubmit(ctx context.Context, opts *globalOptions, input string, wait time.Duration) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	c, err := client.Dial(client.Options{
		HostPort:  a.cfg.Temporal.Host,
		Namespace: a.cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	we, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "depcheck-resolve-" + uuid.NewString(),
		TaskQueue: a.cfg.Temporal.TaskQueue,
	}, temporalmod.ResolveWorkflow, temporalmod.ResolveInput{
		Input:  input,
		Portal: a.cfg.Portal.URL,
	})
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	a.logger.Info("workflow started", zap.String("workflow_id", we.GetID()), zap.String("run_id", we.GetRunID()))

	var res temporalmod.ResolveResult
	if err := we.Get(ctx, &res); err != nil {
		return fmt.Errorf("workflow %s: %w", we.GetID(), err)
	}
	if res.NeedsAuth() {
		fmt.Fprint(os.Stderr, a.render.Notice(res.Notice))
		return errAuthRequired
	}

	g, err := res.Graph()
	if err != nil {
		return err
	}
	if a.json {
		return writeJSON(a, res)
	}
	fmt.Fprint(a.out, a.render.Graph(g))
	return nil
}
