// Package steps consumes the durable step queue and dispatches each task to
// the pipeline stage it names.
package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/steps",
)

// StepRunner is the video half of the pipeline.
type StepRunner interface {
	CheckReady(ctx context.Context, submissionID uuid.UUID) error
	Transcode(ctx context.Context, submissionID uuid.UUID) error
	Analyze(ctx context.Context, submissionID uuid.UUID) error
}

// TopicGenerator is the topic half, isolated so its failures stay its own.
type TopicGenerator interface {
	Generate(ctx context.Context, submissionID uuid.UUID) error
}

type StepMsgHandler struct {
	runner   StepRunner
	topics   TopicGenerator
	validate *validator.Validate
}

var _ queue.MessageHandler = (*StepMsgHandler)(nil)

func NewStepMsgHandler(runner StepRunner, topics TopicGenerator) *StepMsgHandler {
	return &StepMsgHandler{
		runner:   runner,
		topics:   topics,
		validate: validator.New(),
	}
}

// Handle runs one queued step. Malformed payloads are poisoned so the queue
// drops them; step errors propagate so delivery retries with backoff.
func (h *StepMsgHandler) Handle(ctx context.Context, message []byte) error {
	ctx, span := tracer.Start(ctx, "StepMsgHandler.Handle")
	defer span.End()

	var task types.StepTask
	if err := json.Unmarshal(message, &task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal step task")
		return queue.WrapPoisonError(err)
	}

	if err := h.validate.Struct(task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step task failed validation")
		return queue.WrapPoisonError(err)
	}

	submissionID, err := uuid.Parse(task.SubmissionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step task carried an invalid submission id")
		return queue.WrapPoisonError(err)
	}

	span.SetAttributes(
		attribute.String("task.kind", string(task.Kind)),
		attribute.String("submission.id", task.SubmissionID),
		attribute.Int("task.retry", task.Retry),
	)

	switch task.Kind {
	case types.StepCheckReady:
		err = h.runner.CheckReady(ctx, submissionID)
	case types.StepTranscode:
		err = h.runner.Transcode(ctx, submissionID)
	case types.StepAnalyze:
		err = h.runner.Analyze(ctx, submissionID)
	case types.StepGenerateTopic:
		err = h.topics.Generate(ctx, submissionID)
	default:
		err := fmt.Errorf("unknown step kind %q", task.Kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return queue.WrapPoisonError(err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "handled")
	return nil
}

// MonitorStepsQueue consumes scheduled steps until `ctx` is cancelled.
func MonitorStepsQueue(
	ctx context.Context,
	qr queue.Queuer,
	runner StepRunner,
	topics TopicGenerator,
) {
	ctx, span := tracer.Start(ctx, "MonitorStepsQueue")
	defer span.End()

	handler := NewStepMsgHandler(runner, topics)
OUTER:
	for {
		func() {
			//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
			ctx, span := tracer.Start(ctx, "MonitorStepsQueue.Loop")
			defer span.End()

			if err := qr.Dequeue(ctx, 10*time.Minute, handler); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to dequeue and handle message")
				return
			}
		}()

		select {
		case <-ctx.Done():
			break OUTER
		default:
			continue
		}
	}
}
