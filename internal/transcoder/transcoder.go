package transcoder

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/transcoder",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Client

type (
	// File is a staging slot on the transcoder. Bytes are PUT against
	// UploadURL before Process is called with the handle.
	File struct {
		Handle    string
		UploadURL string
	}

	// OutputSpec describes the derivative to produce.
	OutputSpec struct {
		MaxHeight int    `json:"max_height"`
		Container string `json:"container"`
	}

	Result struct {
		DownloadURL string
	}
)

// Client talks to the external transcoding service
type Client interface {
	CreateFile(ctx context.Context, name string) (*File, error)
	PutBytes(ctx context.Context, uploadURL string, body io.Reader, size int64) error
	Process(ctx context.Context, handle string, spec OutputSpec) (*Result, error)
}
