package temporal

import (
	"fmt"
	"time"

	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ResolveWorkflow runs one resolution. The activity gets a single attempt:
// a failed run is reported, never retried.
func ResolveWorkflow(ctx workflow.Context, input ResolveInput) (*ResolveResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &sdktemporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result ResolveResult
	if err := workflow.ExecuteActivity(ctx, ResolveActivity, input).Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", input.Input, err)
	}
	if result.NeedsAuth() {
		workflow.GetLogger(ctx).Warn("resolution needs a token", "stage", result.Stage, "itemId", result.ItemID)
	}
	return &result, nil
}
