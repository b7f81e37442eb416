package taskrunner

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const name = "github.com/clipcoach/clipcoach-api/clipcoach-api/server/taskrunner"

var tracer = otel.Tracer(name)

// Client tracks background goroutines so shutdown can wait for them, bounded
// by a deadline.
type Client struct {
	running sync.WaitGroup
}

func Create() *Client {
	return &Client{}
}

// Run starts task on its own goroutine. The context handed to the task does
// not propagate cancellation; a task that must stop on shutdown closes over
// its own cancellable context and Shutdown's deadline is the backstop.
func (c *Client) Run(ctx context.Context, task func(context.Context)) {
	c.running.Add(1)
	go func() {
		defer c.running.Done()

		//nolint:govet // shadow: intentionally shadow ctx to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "Run")
		defer span.End()

		task(context.WithoutCancel(ctx))

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "ran task")
	}()
}

// Shutdown blocks until every tracked task returns or ctx is done, whichever
// comes first.
func (c *Client) Shutdown(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Shutdown")
	defer span.End()

	done := make(chan struct{})
	go func() {
		c.running.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		err := errors.New("tasks still running at shutdown deadline")
		span.AddEvent("hit_deadline")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	case <-done:
		span.AddEvent("done")
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "all tasks finished")
		return nil
	}
}
