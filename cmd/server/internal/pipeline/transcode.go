package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/upload"
)

// waitForDownload polls the host until the source download URL is usable.
// This is the one deliberate in-invocation wait: the host prepares downloads
// in seconds, so a bounded inner poll is cheaper than another queue round
// trip per attempt.
func (co *Coordinator) waitForDownload(ctx context.Context, assetID string) (string, error) {
	ctx, span := tracer.Start(ctx, "Coordinator.waitForDownload", trace.WithAttributes(
		attribute.String("asset.id", assetID),
	))
	defer span.End()

	backoff := retry.WithMaxRetries(downloadPollAttempts, retry.NewConstant(downloadPollInterval))

	var url string
	err := retry.Do(ctx, backoff, func(rctx context.Context) error {
		download, err := co.host.RequestDownload(rctx, assetID)
		if err != nil {
			return retry.RetryableError(err)
		}
		if !download.Ready {
			return retry.RetryableError(errors.New("download not ready"))
		}

		url = download.URL
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host never readied the download")
		return "", fmt.Errorf("host never readied the download: %w", err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "download ready")
	return url, nil
}

func (co *Coordinator) fetchAll(ctx context.Context, url string) ([]byte, error) {
	body, err := co.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fetched body: %w", err)
	}

	return data, nil
}

// Transcode produces the downsized derivative for a hosted submission:
// download the source from the host, push it through the transcoder, archive
// a durable copy of the derivative, then hand off to analysis.
//
// Failures park the submission at hosted with an error overlay and do not
// propagate, so the task is not redelivered; the owner retries explicitly.
func (co *Coordinator) Transcode(ctx context.Context, submissionID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "Coordinator.Transcode", trace.WithAttributes(
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

	if submission.State != types.SubmissionStateHosted {
		span.AddEvent("stale_task", trace.WithAttributes(
			attribute.String("state", string(submission.State)),
		))
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "submission not waiting on transcode")
		return nil
	}

	if !submission.HostAssetID.Valid {
		return co.overlayError(ctx, submission, "submission has no host asset recorded")
	}

	sourceURL, err := co.waitForDownload(ctx, submission.HostAssetID.V)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "download never readied")
		return co.overlayError(ctx, submission, err.Error())
	}

	source, err := co.fetchAll(ctx, sourceURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch source video")
		return co.overlayError(ctx, submission, "failed to download source video: "+err.Error())
	}

	span.AddEvent("fetched_source", trace.WithAttributes(
		attribute.Int("bytes", len(source)),
	))

	file, err := co.transcoder.CreateFile(ctx, submission.ID.String()+".mp4")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create transcoder file")
		return co.overlayError(ctx, submission, "transcoder rejected the file: "+err.Error())
	}

	err = co.transcoder.PutBytes(ctx, file.UploadURL, bytes.NewReader(source), int64(len(source)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload to transcoder")
		return co.overlayError(ctx, submission, "failed to hand the video to the transcoder: "+err.Error())
	}

	result, err := co.transcoder.Process(ctx, file.Handle, co.output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcoder failed to process")
		return co.overlayError(ctx, submission, "transcoding failed: "+err.Error())
	}

	// Keep a durable copy; the transcoder's download URL is not guaranteed to
	// outlive its retention window.
	derivative, err := co.fetchAll(ctx, result.DownloadURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch derivative")
		return co.overlayError(ctx, submission, "failed to download the transcoded video: "+err.Error())
	}

	blobName, err := upload.Hashed(ctx, co.archive, bytes.NewReader(derivative), int64(len(derivative)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to archive derivative")
		return co.overlayError(ctx, submission, "failed to archive the transcoded video: "+err.Error())
	}

	span.AddEvent("archived_derivative", trace.WithAttributes(
		attribute.String("blob", blobName),
	))

	updated, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
		"state":          types.SubmissionStateTranscoded,
		"transcoded_url": result.DownloadURL,
		"error_message":  nil,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to advance to transcoded")
		return err
	}
	if !updated {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "lost the advance race")
		return nil
	}

	err = co.queue.Enqueue(ctx, types.NewAnalyzeTask(submission.ID.String()), 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to schedule analysis")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "transcoded submission")
	return nil
}
