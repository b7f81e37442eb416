package pipeline

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

// ErrNotRetryable marks states with nothing to retry.
var ErrNotRetryable = errors.New("nothing to retry in this state")

// ErrNotPolling marks a check-now nudge against a submission that is not
// waiting on the host.
var ErrNotPolling = errors.New("submission is not polling the video host")

// RetryStep re-enters the pipeline for a parked submission. Dispatch is on
// the persisted state alone; the error message is cosmetic.
func (co *Coordinator) RetryStep(
	ctx context.Context,
	submission *models.Submission,
) (*types.RetryResponse, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.RetryStep", trace.WithAttributes(
		attribute.String("submission.id", submission.ID.String()),
		attribute.String("submission.state", string(submission.State)),
	))
	defer span.End()

	resp := &types.RetryResponse{
		SubmissionID: submission.ID.String(),
		Action:       types.RetryActionRescheduled,
	}

	switch submission.State {
	case types.SubmissionStateUploadPending:
		// A fresh upload may need a fresh target; the server cannot redo the
		// byte transfer for the client.
		resp.Action = types.RetryActionReupload
		resp.State = submission.State
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "client must re-upload")
		return resp, nil

	case types.SubmissionStateUploaded, types.SubmissionStateTimedOut:
		if err := co.ResumePolling(ctx, submission); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to resume polling")
			return nil, err
		}

	case types.SubmissionStateHosted:
		updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
			"error_message": nil,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to clear error")
			return nil, err
		}
		if !updated {
			span.RecordError(ErrWrongState)
			span.SetStatus(codes.Ok, "submission advanced concurrently")
			return nil, ErrWrongState
		}

		err = co.queue.Enqueue(ctx, types.NewTranscodeTask(submission.ID.String()), 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to schedule transcode")
			return nil, err
		}

	case types.SubmissionStateTranscoded, types.SubmissionStateAnalyzing:
		if !submission.TranscodedURL.Valid {
			span.RecordError(ErrNotRetryable)
			span.SetStatus(codes.Ok, "no derivative to analyze")
			return nil, ErrNotRetryable
		}

		updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
			"error_message": nil,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to clear error")
			return nil, err
		}
		if !updated {
			span.RecordError(ErrWrongState)
			span.SetStatus(codes.Ok, "submission advanced concurrently")
			return nil, ErrWrongState
		}

		err = co.queue.Enqueue(ctx, types.NewAnalyzeTask(submission.ID.String()), 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to schedule analysis")
			return nil, err
		}

	default:
		span.RecordError(ErrNotRetryable)
		span.SetStatus(codes.Ok, "state is not retryable")
		return nil, ErrNotRetryable
	}

	resp.State = submission.State

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "retried step")
	return resp, nil
}

// CheckStatusNow lets an impatient owner cut a long poll interval short. Only
// meaningful while the submission is actually polling.
func (co *Coordinator) CheckStatusNow(
	ctx context.Context,
	submission *models.Submission,
) error {
	ctx, span := tracer.Start(ctx, "Coordinator.CheckStatusNow", trace.WithAttributes(
		attribute.String("submission.id", submission.ID.String()),
	))
	defer span.End()

	if !submission.State.Polling() {
		span.RecordError(ErrNotPolling)
		span.SetStatus(codes.Ok, "submission is not polling")
		return ErrNotPolling
	}

	if err := co.ResumePolling(ctx, submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resume polling")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "scheduled immediate check")
	return nil
}
