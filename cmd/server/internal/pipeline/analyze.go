package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/score"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

const scorePrompt = `You are a public speaking coach reviewing a short practice take.
Score the speaker from 0 to 100 on each of these metrics: voice clarity, confidence, pacing, engagement.
Respond with a single JSON object shaped like
{"voice_clarity": 0, "confidence": 0, "pacing": 0, "engagement": 0, "feedback": "two sentences of concrete advice"}
and nothing else.`

// waitForFileActive polls the analyzer until the uploaded media is ingested.
func (co *Coordinator) waitForFileActive(ctx context.Context, fileID string) (*analyzer.File, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.waitForFileActive", trace.WithAttributes(
		attribute.String("file.id", fileID),
	))
	defer span.End()

	backoff := retry.WithMaxRetries(analyzerPollAttempts, retry.NewConstant(analyzerPollInterval))

	var file *analyzer.File
	err := retry.Do(ctx, backoff, func(rctx context.Context) error {
		current, err := co.analyzer.GetFile(rctx, fileID)
		if err != nil {
			return retry.RetryableError(err)
		}

		switch current.State {
		case analyzer.FileStateActive:
			file = current
			return nil
		case analyzer.FileStateFailed:
			return errors.New("analyzer failed to ingest the file")
		default:
			return retry.RetryableError(errors.New("file still processing"))
		}
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "file never became active")
		return nil, fmt.Errorf("analyzer file never became active: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "file active")
	return file, nil
}

// Analyze scores a transcoded submission. The state moves to analyzing before
// the expensive call so a crash mid-call leaves a retryable row instead of a
// lost one, and analysis is never retried automatically.
//
// A task arriving for an already analyzed submission re-runs only the
// progression side effect, which is idempotent; that covers a crash between
// persisting the result and advancing the challenge.
func (co *Coordinator) Analyze(ctx context.Context, submissionID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "Coordinator.Analyze", trace.WithAttributes(
		attribute.String("submission.id", submissionID.String()),
	))
	defer span.End()

	submission, err := models.ByID[models.Submission](ctx, co.db, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "submission no longer exists")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return err
	}

	switch submission.State {
	case types.SubmissionStateTranscoded:
		updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
			"state":         types.SubmissionStateAnalyzing,
			"error_message": nil,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to advance to analyzing")
			return err
		}
		if !updated {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "lost the advance race")
			return nil
		}
	case types.SubmissionStateAnalyzing:
		// Crash recovery or a manual retry; carry on from here.
		span.AddEvent("resuming_analysis")
	case types.SubmissionStateAnalyzed:
		span.AddEvent("rerunning_progression_only")
		return co.progression.OnAnalyzed(ctx, submission)
	default:
		span.AddEvent("stale_task", trace.WithAttributes(
			attribute.String("state", string(submission.State)),
		))
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submission not waiting on analysis")
		return nil
	}

	if !submission.TranscodedURL.Valid {
		return co.overlayError(ctx, submission, "submission has no transcoded video recorded")
	}

	derivative, err := co.fetchAll(ctx, submission.TranscodedURL.V)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch derivative")
		return co.overlayError(ctx, submission, "failed to download the transcoded video: "+err.Error())
	}

	uploaded, err := co.analyzer.UploadFile(
		ctx,
		submission.ID.String()+".mp4",
		"video/mp4",
		bytes.NewReader(derivative),
		int64(len(derivative)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload to analyzer")
		return co.overlayError(ctx, submission, "failed to hand the video to the analyzer: "+err.Error())
	}

	updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
		"analyzer_file_id": uploaded.ID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist analyzer file id")
		return err
	}
	if !updated {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "lost the file id race")
		return nil
	}

	file, err := co.waitForFileActive(ctx, uploaded.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analyzer never ingested the file")
		return co.overlayError(ctx, submission, err.Error())
	}

	raw, err := co.analyzer.Generate(ctx, scorePrompt, file)

	// The uploaded handle is scratch space either way.
	if deleteErr := co.analyzer.DeleteFile(ctx, uploaded.ID); deleteErr != nil {
		span.AddEvent("file_delete_failed", trace.WithAttributes(
			attribute.String("error", deleteErr.Error()),
		))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analyzer call failed")
		return co.overlayError(ctx, submission, "analysis failed: "+err.Error())
	}

	analysis := score.Parse(raw)

	updated, err = submission.UpdateGuarded(ctx, co.db, map[string]any{
		"state":         types.SubmissionStateAnalyzed,
		"analysis":      datatypes.NewJSONType(analysis),
		"raw_analysis":  raw,
		"error_message": nil,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist analysis")
		return err
	}
	if !updated {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "lost the persist race")
		return nil
	}

	err = co.progression.OnAnalyzed(ctx, submission)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to advance the challenge")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "analyzed submission")
	return nil
}
