package context

import (
	"context"

	"dockout/infrastructure/workflow"
)

type runKey struct{}

func NewContextWithRun(ctx context.Context, run *workflow.Run) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

func GetRunFromContext(ctx context.Context) (*workflow.Run, bool) {
	r, ok := ctx.Value(runKey{}).(*workflow.Run)
	return r, ok && r != nil
}
