package pipeline

import (
	"errors"
	"time"

	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

// ErrWrongState is returned by the synchronous entry points when the
// submission is not in the state the operation expects.
var ErrWrongState = errors.New("submission is not in the required state")

// IssueUploadTarget mints an upload destination at the video host and moves
// the slot to upload_pending. Runs synchronously inside the request; host
// failures surface to the caller and nothing is retried automatically.
func (co *Coordinator) IssueUploadTarget(
	ctx context.Context,
	submission *models.Submission,
) (*types.UploadTargetResponse, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.IssueUploadTarget", trace.WithAttributes(
		attribute.String("submission.id", submission.ID.String()),
	))
	defer span.End()

	if submission.State != types.SubmissionStateInitial {
		span.AddEvent("wrong_state", trace.WithAttributes(
			attribute.String("state", string(submission.State)),
		))
		span.RecordError(ErrWrongState)
		span.SetStatus(codes.Ok, "submission not in initial state")
		return nil, ErrWrongState
	}

	target, err := co.host.CreateDirectUpload(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create direct upload")
		return nil, err
	}

	updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
		"state":         types.SubmissionStateUploadPending,
		"host_asset_id": target.AssetID,
		"upload_url":    target.UploadURL,
		"error_message": nil,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist upload target")
		return nil, err
	}
	if !updated {
		span.RecordError(ErrWrongState)
		span.SetStatus(codes.Ok, "submission advanced concurrently")
		return nil, ErrWrongState
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "issued upload target")
	return &types.UploadTargetResponse{
		SubmissionID: submission.ID.String(),
		UploadURL:    target.UploadURL,
		State:        types.SubmissionStateUploadPending,
	}, nil
}

// MarkUploaded records that the client finished the byte transfer and kicks
// off the host readiness poll.
func (co *Coordinator) MarkUploaded(
	ctx context.Context,
	submission *models.Submission,
) error {
	ctx, span := tracer.Start(ctx, "Coordinator.MarkUploaded", trace.WithAttributes(
		attribute.String("submission.id", submission.ID.String()),
	))
	defer span.End()

	if submission.State != types.SubmissionStateUploadPending {
		span.RecordError(ErrWrongState)
		span.SetStatus(codes.Ok, "submission not in upload_pending state")
		return ErrWrongState
	}

	updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
		"state":           types.SubmissionStateUploaded,
		"poll_started_at": time.Now(),
		"poll_retries":    0,
		"error_message":   nil,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to mark submission uploaded")
		return err
	}
	if !updated {
		span.RecordError(ErrWrongState)
		span.SetStatus(codes.Ok, "submission advanced concurrently")
		return ErrWrongState
	}

	err = co.queue.Enqueue(ctx, types.NewCheckReadyTask(submission.ID.String(), 0), InitialCheckDelay)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to schedule readiness check")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "marked submission uploaded")
	return nil
}
