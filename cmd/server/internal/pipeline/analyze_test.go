package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

type progressorFunc func(ctx context.Context, submission *models.Submission) error

func (f progressorFunc) OnAnalyzed(ctx context.Context, submission *models.Submission) error {
	return f(ctx, submission)
}

func TestAnalyze(t *testing.T) {
	const rawScore = `{"voice_clarity": 80, "confidence": 70, "pacing": 60, "engagement": 90, "feedback": "good energy"}`

	t.Run("ScoresAndAdvancesChallenge", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		co, mocks := newTestCoordinator(t, db)

		submission := seedSubmission(t, db, types.SubmissionStateTranscoded, func(s *models.Submission) {
			s.TranscodedURL = models.NewNullFromData("https://cdn.example/derivative.mp4")
		})

		progressed := 0
		co.progression = progressorFunc(func(_ context.Context, s *models.Submission) error {
			progressed++
			assert.Equal(t, submission.ID, s.ID, "progression should see the analyzed submission")
			return nil
		})

		mocks.fetcher.EXPECT().
			Fetch(gomock.Any(), "https://cdn.example/derivative.mp4").
			Return(io.NopCloser(bytes.NewReader([]byte("video bytes"))), nil).
			Times(1)
		mocks.analyzer.EXPECT().
			UploadFile(gomock.Any(), submission.ID.String()+".mp4", "video/mp4", gomock.Any(), int64(len("video bytes"))).
			Return(&analyzer.File{ID: "file-1", State: analyzer.FileStateProcessing}, nil).
			Times(1)
		mocks.analyzer.EXPECT().
			GetFile(gomock.Any(), "file-1").
			Return(&analyzer.File{ID: "file-1", State: analyzer.FileStateActive}, nil).
			Times(1)
		mocks.analyzer.EXPECT().
			Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(rawScore, nil).
			Times(1)
		mocks.analyzer.EXPECT().
			DeleteFile(gomock.Any(), "file-1").
			Return(nil).
			Times(1)

		err := co.Analyze(ctx, submission.ID)

		require.NoError(t, err)
		assert.Equal(t, 1, progressed, "progression should run exactly once")

		stored := reload(t, db, submission.ID)
		assert.Equal(t, types.SubmissionStateAnalyzed, stored.State, "should reach the success terminal")
		assert.Equal(t, 80, stored.Analysis.Data().VoiceClarity, "wrong parsed score")
		assert.Equal(t, rawScore, stored.RawAnalysis.V, "raw output should be kept verbatim")
		assert.False(t, stored.ErrorMessage.Valid, "no error on success")
	})

	t.Run("FetchFailureParksInAnalyzing", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		co, mocks := newTestCoordinator(t, db)
		co.progression = progressorFunc(func(context.Context, *models.Submission) error {
			t.Fatal("progression must not run on failure")
			return nil
		})

		submission := seedSubmission(t, db, types.SubmissionStateTranscoded, func(s *models.Submission) {
			s.TranscodedURL = models.NewNullFromData("https://cdn.example/derivative.mp4")
		})

		mocks.fetcher.EXPECT().
			Fetch(gomock.Any(), "https://cdn.example/derivative.mp4").
			Return(nil, errors.New("cdn unreachable")).
			Times(1)

		err := co.Analyze(ctx, submission.ID)

		require.NoError(t, err, "domain failures park the submission instead of redelivering")

		stored := reload(t, db, submission.ID)
		assert.Equal(t, types.SubmissionStateAnalyzing, stored.State, "failure should leave a retryable row")
		assert.Contains(t, stored.ErrorMessage.V, "cdn unreachable")
	})

	t.Run("AnalyzedRerunsProgressionOnly", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		co, _ := newTestCoordinator(t, db)

		submission := seedSubmission(t, db, types.SubmissionStateAnalyzed, nil)

		progressed := 0
		co.progression = progressorFunc(func(context.Context, *models.Submission) error {
			progressed++
			return nil
		})

		err := co.Analyze(ctx, submission.ID)

		require.NoError(t, err)
		assert.Equal(t, 1, progressed, "redelivery after success replays only the side effect")
	})

	t.Run("StaleStateIsNoOp", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		co, _ := newTestCoordinator(t, db)

		submission := seedSubmission(t, db, types.SubmissionStateUploaded, nil)

		err := co.Analyze(ctx, submission.ID)

		require.NoError(t, err)
		stored := reload(t, db, submission.ID)
		assert.Equal(t, types.SubmissionStateUploaded, stored.State, "stale task must not move the row")
	})

	t.Run("IngestFailureParksSubmission", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		co, mocks := newTestCoordinator(t, db)
		co.progression = progressorFunc(func(context.Context, *models.Submission) error {
			t.Fatal("progression must not run on failure")
			return nil
		})

		submission := seedSubmission(t, db, types.SubmissionStateAnalyzing, func(s *models.Submission) {
			s.TranscodedURL = models.NewNullFromData("https://cdn.example/derivative.mp4")
		})

		mocks.fetcher.EXPECT().
			Fetch(gomock.Any(), gomock.Any()).
			Return(io.NopCloser(bytes.NewReader([]byte("video bytes"))), nil).
			Times(1)
		mocks.analyzer.EXPECT().
			UploadFile(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&analyzer.File{ID: "file-1", State: analyzer.FileStateProcessing}, nil).
			Times(1)
		mocks.analyzer.EXPECT().
			GetFile(gomock.Any(), "file-1").
			Return(&analyzer.File{ID: "file-1", State: analyzer.FileStateFailed}, nil).
			Times(1)

		err := co.Analyze(ctx, submission.ID)

		require.NoError(t, err)

		stored := reload(t, db, submission.ID)
		assert.Equal(t, types.SubmissionStateAnalyzing, stored.State)
		assert.True(t, stored.ErrorMessage.Valid, "ingest failure should leave a message")
	})
}
