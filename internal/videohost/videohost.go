package videohost

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/videohost",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Client

// Returned by GetStatus when the host does not know the asset yet. Freshly
// finished uploads can race the host's ingest, so callers treat a bounded
// number of these as "still processing".
var ErrAssetNotFound = errors.New("asset not found")

type AssetState string

const (
	AssetStateReady      AssetState = "ready"
	AssetStateErrored    AssetState = "errored"
	AssetStateProcessing AssetState = "processing"
)

type (
	// A pre-issued upload destination the client PUTs bytes against
	DirectUpload struct {
		AssetID   string
		UploadURL string
	}

	AssetStatus struct {
		State       AssetState
		ErrorDetail string
	}

	// Source download for the original upload. The host prepares these
	// asynchronously, Ready is false until the URL is usable.
	Download struct {
		URL   string
		Ready bool
	}
)

// Client talks to the external video hosting service
type Client interface {
	CreateDirectUpload(ctx context.Context) (*DirectUpload, error)
	GetStatus(ctx context.Context, assetID string) (*AssetStatus, error)
	RequestDownload(ctx context.Context, assetID string) (*Download, error)
}
