package analyzer

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Client

// FileState is the analyzer's ingest state for an uploaded media file. The
// file is unusable until the analyzer reports it ACTIVE.
type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive     FileState = "ACTIVE"
	FileStateFailed     FileState = "FAILED"
)

type File struct {
	ID    string
	URI   string
	State FileState
}

// Client talks to the external AI analyzer. Large media goes through the
// upload handshake: UploadFile, poll GetFile until ACTIVE, Generate against
// the file URI, then DeleteFile once done.
type Client interface {
	UploadFile(ctx context.Context, name, mimeType string, body io.Reader, size int64) (*File, error)
	GetFile(ctx context.Context, id string) (*File, error)
	Generate(ctx context.Context, prompt string, file *File) (string, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
	DeleteFile(ctx context.Context, id string) error
}
