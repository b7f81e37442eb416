package upload

import (
	"context"
	"io"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
)

var _ Uploader = (*RetryUploader)(nil)

// RetryUploader wraps every archive operation in a backoff loop. Archiving is
// not latency sensitive, so transient store failures are absorbed here rather
// than surfaced to the pipeline.
type RetryUploader struct {
	uploader Uploader
	backoff  func() retry.Backoff
}

func NewRetryUploaderBackoff(uploader Uploader, backoff func() retry.Backoff) *RetryUploader {
	return &RetryUploader{
		uploader: uploader,
		backoff:  backoff,
	}
}

func NewRetryUploader(uploader Uploader) *RetryUploader {
	return NewRetryUploaderBackoff(uploader, func() retry.Backoff {
		return retry.WithMaxDuration(120*time.Second, retry.NewExponential(time.Second))
	})
}

// retried runs op under the decorator's backoff, marking every failure
// retryable. Each attempt gets its own child span.
func retried[T any](
	ctx context.Context,
	r *RetryUploader,
	opName string,
	op func(ctx context.Context) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, "RetryUploader."+opName)
	defer span.End()

	var result T
	err := retry.Do(ctx, r.backoff(), func(rctx context.Context) error {
		actx, aspan := tracer.Start(rctx, "RetryUploader."+opName+".Attempt")
		defer aspan.End()

		var err error
		result, err = op(actx)
		if err != nil {
			aspan.RecordError(err)
			aspan.SetStatus(codes.Error, "attempt failed")
			return retry.RetryableError(err)
		}

		aspan.RecordError(nil)
		aspan.SetStatus(codes.Ok, "attempt succeeded")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "exhausted retries")
		return result, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "succeeded")
	return result, nil
}

func (r *RetryUploader) Upload(
	ctx context.Context,
	reader io.ReadSeeker,
	length int64,
	key string,
) error {
	_, err := retried(ctx, r, "Upload", func(ctx context.Context) (struct{}, error) {
		// rewind so a retried attempt re-sends the whole object
		if _, err := reader.Seek(0, io.SeekStart); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, r.uploader.Upload(ctx, reader, length, key)
	})
	return err
}

func (r *RetryUploader) Exists(ctx context.Context, key string) (bool, error) {
	return retried(ctx, r, "Exists", func(ctx context.Context) (bool, error) {
		return r.uploader.Exists(ctx, key)
	})
}

func (r *RetryUploader) StoreIdentifier(ctx context.Context) (string, error) {
	return retried(ctx, r, "StoreIdentifier", func(ctx context.Context) (string, error) {
		return r.uploader.StoreIdentifier(ctx)
	})
}

func (r *RetryUploader) PresignedReadURL(
	ctx context.Context,
	key string,
	duration time.Duration,
) (string, error) {
	return retried(ctx, r, "PresignedReadURL", func(ctx context.Context) (string, error) {
		return r.uploader.PresignedReadURL(ctx, key, duration)
	})
}
