package upload

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/hash"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/upload",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Uploader

// Uploader is the durable archive for video bytes. The pipeline parks a copy
// of every transcoded derivative here because the transcoder's download URLs
// expire.
type Uploader interface {
	// Upload writes the contents of reader under key, overwriting any
	// previous object.
	Upload(ctx context.Context, reader io.ReadSeeker, length int64, key string) error
	// Exists reports whether an object is already stored under key. It is a
	// dedup hint, not an authoritative check; implementations may always
	// report false.
	Exists(ctx context.Context, key string) (bool, error)
	// StoreIdentifier names the backing store (bucket) for logging.
	StoreIdentifier(ctx context.Context) (string, error)
	// PresignedReadURL returns an unauthenticated, time-limited download URL
	// for the object under key.
	PresignedReadURL(ctx context.Context, key string, duration time.Duration) (string, error)
}

// Hashed archives reader content-addressed: the key is the hash of the bytes,
// and an object that already exists under that hash is not re-uploaded.
// Seeks reader back to the start, so pass a buffer meant to be stored whole.
func Hashed(
	ctx context.Context,
	u Uploader,
	reader io.ReadSeeker,
	length int64,
) (string, error) {
	ctx, span := tracer.Start(ctx, "UploadHashed")
	defer span.End()

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seek to start")
		return "", err
	}

	key, err := hash.Reader(ctx, reader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hash content")
		return "", err
	}

	exists, err := u.Exists(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check for existing object")
		return "", err
	}
	if exists {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "content already archived")
		return key, nil
	}

	if _, err := reader.Seek(0, io.SeekStart); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seek to start")
		return "", err
	}

	if err := u.Upload(ctx, reader, length, key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload content")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived content by hash")
	return key, nil
}
