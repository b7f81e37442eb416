// Package pipeline drives a submission from "no video" to "analyzed".
//
// Nothing here loops or blocks between states. Every asynchronous step is a
// queue task that re-reads the submission, verifies its precondition state,
// does one unit of work, and schedules the next task. Re-delivered or stale
// tasks notice the precondition mismatch and return without effect.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/fetch"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/transcoder"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/upload"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/videohost"
)

const name = "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/pipeline"

var tracer = otel.Tracer(name)

const (
	// Delay before the first host status check after an upload finishes.
	InitialCheckDelay = 10 * time.Second
	// Interval between host status checks while the host is processing.
	PollInterval = 30 * time.Second
	// Status checks before the submission is declared timed out.
	MaxPollRetries = 20
	// "Not found" responses tolerated right after upload. The host's ingest
	// is eventually consistent and can briefly deny knowing the asset.
	NotFoundTolerance = 3

	// Inner bounded poll for the host preparing a source download.
	downloadPollInterval = 5 * time.Second
	downloadPollAttempts = 24

	// Inner bounded poll for the analyzer ingesting an uploaded file.
	analyzerPollInterval = 5 * time.Second
	analyzerPollAttempts = 36
)

// Progressor is told about each successfully analyzed submission and decides
// whether the challenge gets its next slot.
type Progressor interface {
	OnAnalyzed(ctx context.Context, submission *models.Submission) error
}

type Coordinator struct {
	db          *gorm.DB
	queue       queue.Queuer
	host        videohost.Client
	transcoder  transcoder.Client
	analyzer    analyzer.Client
	fetcher     fetch.Fetcher
	archive     upload.Uploader
	progression Progressor
	output      transcoder.OutputSpec
}

func NewCoordinator(
	db *gorm.DB,
	queuer queue.Queuer,
	host videohost.Client,
	transcoderClient transcoder.Client,
	analyzerClient analyzer.Client,
	fetcher fetch.Fetcher,
	archive upload.Uploader,
	progression Progressor,
	output transcoder.OutputSpec,
) *Coordinator {
	return &Coordinator{
		db:          db,
		queue:       queuer,
		host:        host,
		transcoder:  transcoderClient,
		analyzer:    analyzerClient,
		fetcher:     fetcher,
		archive:     archive,
		progression: progression,
		output:      output,
	}
}

// overlayError parks the submission at its current state with a readable
// error message. Domain failures end up here instead of propagating, so the
// queue does not redeliver; the owner resumes the pipeline through the retry
// endpoint.
func (co *Coordinator) overlayError(
	ctx context.Context,
	submission *models.Submission,
	message string,
) error {
	_, err := submission.UpdateGuarded(ctx, co.db, map[string]any{
		"error_message": message,
	})
	return err
}
