package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/clipcoach/clipcoach-api/clipcoach-api/internal/hash")

// Reader returns the hex sha256 of everything remaining in r, consuming it.
func Reader(ctx context.Context, r io.Reader) (string, error) {
	_, span := tracer.Start(ctx, "Reader")
	defer span.End()

	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stream into hasher")
		return "", err
	}

	sum := hex.EncodeToString(h.Sum(nil))
	span.AddEvent("digested", trace.WithAttributes(attribute.String("sum", sum)))

	return sum, nil
}

func Buffer(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
