package fetch

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/fetch",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Fetcher

// Downloads video bytes from host download URLs and transcoder output URLs
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}
