package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/videohost"
)

// What one readiness check observed at the host.
type hostObservation struct {
	errorDetail  string
	state        videohost.AssetState
	notFound     bool
	transportErr bool
}

type readyAction int

const (
	// Advance to hosted and schedule transcoding
	actionAdvance readyAction = iota
	// Persist the message and park the submission where it is
	actionError
	// Persist the incremented counter and check again after PollInterval
	actionReschedule
	// Move to the processing_timeout terminal
	actionTimeout
)

// decideReady maps one host observation onto the next pipeline action. Pure
// so the poll policy is testable without a database or queue.
//
// Transport failures count as "still processing": a flaky network should eat
// into the retry budget, not produce an instant timeout. A not-found answer
// right after upload is tolerated a few times because the host's ingest can
// lag behind the finished byte transfer.
func decideReady(retry int, obs hostObservation) (readyAction, string) {
	if obs.notFound {
		if retry < NotFoundTolerance {
			return actionReschedule, ""
		}
		return actionError, "video host does not know the uploaded asset"
	}

	if obs.transportErr || obs.state == videohost.AssetStateProcessing {
		if retry >= MaxPollRetries {
			return actionTimeout, fmt.Sprintf(
				"video host did not finish processing after %d checks", retry,
			)
		}
		return actionReschedule, ""
	}

	switch obs.state {
	case videohost.AssetStateReady:
		return actionAdvance, ""
	case videohost.AssetStateErrored:
		detail := obs.errorDetail
		if detail == "" {
			detail = "unknown host error"
		}
		return actionError, "video host failed to process the upload: " + detail
	default:
		return actionError, fmt.Sprintf("video host reported unknown state %q", obs.state)
	}
}

// CheckReady is the scheduled host readiness poll.
func (co *Coordinator) CheckReady(ctx context.Context, submissionID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "Coordinator.CheckReady", trace.WithAttributes(
		attribute.String("submission.id", submissionID.String()),
	))
	defer span.End()

	submission, err := models.ByID[models.Submission](ctx, co.db, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.AddEvent("submission_missing")
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "submission no longer exists")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return err
	}

	if submission.State != types.SubmissionStateUploaded {
		span.AddEvent("stale_task", trace.WithAttributes(
			attribute.String("state", string(submission.State)),
		))
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submission moved past polling")
		return nil
	}

	if !submission.HostAssetID.Valid {
		span.RecordError(nil)
		span.SetStatus(codes.Error, "uploaded submission has no asset id")
		return co.overlayError(ctx, submission, "submission has no host asset recorded")
	}

	// The persisted counter is authoritative; the one in the task payload is
	// only advisory and may lag after manual resets.
	retry := submission.PollRetries

	var obs hostObservation
	status, err := co.host.GetStatus(ctx, submission.HostAssetID.V)
	switch {
	case errors.Is(err, videohost.ErrAssetNotFound):
		obs.notFound = true
	case err != nil:
		span.AddEvent("transport_failure", trace.WithAttributes(
			attribute.String("error", err.Error()),
		))
		obs.transportErr = true
	default:
		obs.state = status.State
		obs.errorDetail = status.ErrorDetail
	}

	action, message := decideReady(retry, obs)

	switch action {
	case actionAdvance:
		updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
			"state":         types.SubmissionStateHosted,
			"error_message": nil,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to advance to hosted")
			return err
		}
		if !updated {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "lost the advance race")
			return nil
		}

		err = co.queue.Enqueue(ctx, types.NewTranscodeTask(submission.ID.String()), 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to schedule transcode")
			return err
		}

	case actionReschedule:
		updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
			"poll_retries": retry + 1,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist poll counter")
			return err
		}
		if !updated {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "lost the reschedule race")
			return nil
		}

		err = co.queue.Enqueue(ctx, types.NewCheckReadyTask(submission.ID.String(), retry+1), PollInterval)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to reschedule readiness check")
			return err
		}

	case actionTimeout:
		_, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
			"state":         types.SubmissionStateTimedOut,
			"error_message": message,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist timeout")
			return err
		}

	case actionError:
		if err := co.overlayError(ctx, submission, message); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist host error")
			return err
		}
	}

	span.AddEvent("decided", trace.WithAttributes(
		attribute.Int("action", int(action)),
		attribute.Int("retry", retry),
	))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "checked readiness")
	return nil
}

// ResumePolling resets the poll budget and schedules an immediate check. Used
// by both the retry entry point and the owner's "check now" nudge.
func (co *Coordinator) ResumePolling(ctx context.Context, submission *models.Submission) error {
	ctx, span := tracer.Start(ctx, "Coordinator.ResumePolling", trace.WithAttributes(
		attribute.String("submission.id", submission.ID.String()),
	))
	defer span.End()

	updates := map[string]any{
		"poll_retries":  0,
		"error_message": nil,
	}
	// A timed out submission re-enters the polling state.
	if submission.State == types.SubmissionStateTimedOut {
		updates["state"] = types.SubmissionStateUploaded
	}

	updated, err := submission.UpdateGuarded(ctx, co.db, updates)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reset poll state")
		return err
	}
	if !updated {
		span.RecordError(ErrWrongState)
		span.SetStatus(codes.Ok, "submission advanced concurrently")
		return ErrWrongState
	}

	err = co.queue.Enqueue(ctx, types.NewCheckReadyTask(submission.ID.String(), 0), 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to schedule readiness check")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "resumed polling")
	return nil
}
