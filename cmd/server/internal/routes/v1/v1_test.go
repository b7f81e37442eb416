package v1_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	servermiddleware "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/middleware"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/pipeline"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/progression"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/routes"
	v1 "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/routes/v1"
	mockanalyzer "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer/mock"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/config"
	mockfetch "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/fetch/mock"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/logger"
	mockqueue "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue/mock"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/transcoder"
	mocktranscoder "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/transcoder/mock"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
	mockupload "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/upload/mock"
	mockhost "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/videohost/mock"
)

const testToken = "test-token"

type testServer struct {
	e     *echo.Echo
	db    *gorm.DB
	queue *mockqueue.MockQueuer
	auth  *models.Auth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(&models.Auth{}, &models.Challenge{}, &models.Submission{})
	require.NoError(t, err, "failed to migrate test database")

	hash, err := argon2id.CreateHash(testToken, argon2id.DefaultParams)
	require.NoError(t, err, "failed to hash test token")

	auth := models.Auth{
		Token:  hash,
		Note:   "routes test key",
		Active: models.NewNullFromData(true),
	}
	require.NoError(t, db.Create(&auth).Error, "failed to seed api key")

	ctrl := gomock.NewController(t)
	queuer := mockqueue.NewMockQueuer(ctrl)

	coordinator := pipeline.NewCoordinator(
		db,
		queuer,
		mockhost.NewMockClient(ctrl),
		mocktranscoder.NewMockClient(ctrl),
		mockanalyzer.NewMockClient(ctrl),
		mockfetch.NewMockFetcher(ctrl),
		mockupload.NewMockUploader(ctrl),
		nil,
		transcoder.OutputSpec{MaxHeight: 720, Container: "mp4"},
	)

	e, err := routes.BuildEcho(logger.Logger)
	require.NoError(t, err, "failed to build echo instance")

	handler := v1.NewHandler(
		db,
		coordinator,
		progression.NewController(db, queuer),
		queuer,
		&config.Config{},
	)
	handler.AddRoutes(e, &servermiddleware.Handler{DB: db})

	return &testServer{e: e, db: db, queue: queuer, auth: &auth}
}

// seedSubmission creates a challenge and one submission under it, both owned
// by ownerID.
func (ts *testServer) seedSubmission(
	t *testing.T,
	ownerID uuid.UUID,
	state types.SubmissionState,
	mutate func(*models.Submission),
) *models.Submission {
	t.Helper()

	challenge := models.Challenge{
		Title:         "daily pitch",
		GoalPrompt:    "sound confident on camera",
		OwnerID:       ownerID,
		RequiredTakes: 7,
	}
	require.NoError(t, ts.db.Create(&challenge).Error, "failed to seed challenge")

	submission := models.Submission{
		State:       state,
		OwnerID:     ownerID,
		ChallengeID: challenge.ID,
	}
	if mutate != nil {
		mutate(&submission)
	}
	require.NoError(t, ts.db.Create(&submission).Error, "failed to seed submission")

	return &submission
}

func (ts *testServer) request(method, path string, authenticate bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authenticate {
		req.SetBasicAuth(ts.auth.ID.String(), testToken)
	}

	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "failed to decode response body")
	return out
}

func TestAuthGate(t *testing.T) {
	t.Run("RejectsMissingCredentials", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploaded, nil)

		rec := ts.request(http.MethodGet, "/v1/submission/"+submission.ID.String()+"/", false)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "unauthenticated request should be rejected")
	})

	t.Run("RejectsWrongToken", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploaded, nil)

		req := httptest.NewRequest(http.MethodGet, "/v1/submission/"+submission.ID.String()+"/", nil)
		req.SetBasicAuth(ts.auth.ID.String(), "not-the-token")
		rec := httptest.NewRecorder()
		ts.e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong token should be rejected")
	})

	t.Run("RejectsInactiveKey", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploaded, nil)

		err := ts.db.Model(ts.auth).Update("active", models.NewNullFromData(false)).Error
		require.NoError(t, err, "failed to deactivate key")

		rec := ts.request(http.MethodGet, "/v1/submission/"+submission.ID.String()+"/", true)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "inactive key should be rejected")
	})
}

func TestOwnershipGate(t *testing.T) {
	t.Run("HidesForeignSubmission", func(t *testing.T) {
		ts := newTestServer(t)
		// Owned by someone else entirely. No queue expectations are set, so a
		// leaked retry would also fail the mock controller.
		submission := ts.seedSubmission(t, uuid.New(), types.SubmissionStateHosted, nil)

		rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/retry/", true)

		assert.Equal(t, http.StatusNotFound, rec.Code, "foreign submission should look nonexistent")

		var reloaded models.Submission
		require.NoError(t, ts.db.First(&reloaded, "id = ?", submission.ID).Error)
		assert.Equal(t, types.SubmissionStateHosted, reloaded.State, "rejected request must not mutate")
	})

	t.Run("HidesUnknownSubmission", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.request(http.MethodGet, "/v1/submission/"+uuid.NewString()+"/", true)

		assert.Equal(t, http.StatusNotFound, rec.Code, "unknown id should 404")
	})

	t.Run("HidesMalformedSubmissionID", func(t *testing.T) {
		ts := newTestServer(t)

		rec := ts.request(http.MethodGet, "/v1/submission/not-a-uuid/", true)

		assert.Equal(t, http.StatusNotFound, rec.Code, "malformed id should 404, not 400")
	})
}

func TestSubmissionStatusRoute(t *testing.T) {
	ts := newTestServer(t)
	submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploaded, func(s *models.Submission) {
		s.PollRetries = 4
	})

	rec := ts.request(http.MethodGet, "/v1/submission/"+submission.ID.String()+"/", true)

	require.Equal(t, http.StatusOK, rec.Code, "owner should see their submission")

	resp := decode[types.SubmissionStatusResponse](t, rec)
	assert.Equal(t, submission.ID.String(), resp.SubmissionID, "wrong submission id")
	assert.Equal(t, submission.ChallengeID.String(), resp.ChallengeID, "wrong challenge id")
	assert.Equal(t, types.SubmissionStateUploaded, resp.State, "wrong state")
	assert.Equal(t, 4, resp.PollRetries, "wrong poll retry count")
	assert.Nil(t, resp.Analysis, "no analysis before the pipeline finishes")
}

func TestRetryRoute(t *testing.T) {
	t.Run("ReschedulesUploaded", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploaded, func(s *models.Submission) {
			s.PollRetries = 9
		})

		ts.queue.EXPECT().
			Enqueue(gomock.Any(), types.NewCheckReadyTask(submission.ID.String(), 0), time.Duration(0)).
			Return(nil).
			Times(1)

		rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/retry/", true)

		require.Equal(t, http.StatusOK, rec.Code, "retry of a polling submission should succeed")

		resp := decode[types.RetryResponse](t, rec)
		assert.Equal(t, types.RetryActionRescheduled, resp.Action, "wrong retry action")
		assert.Equal(t, types.SubmissionStateUploaded, resp.State, "wrong response state")

		var reloaded models.Submission
		require.NoError(t, ts.db.First(&reloaded, "id = ?", submission.ID).Error)
		assert.Equal(t, 0, reloaded.PollRetries, "poll budget should reset")
	})

	t.Run("ReschedulesHosted", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateHosted, nil)

		ts.queue.EXPECT().
			Enqueue(gomock.Any(), types.NewTranscodeTask(submission.ID.String()), time.Duration(0)).
			Return(nil).
			Times(1)

		rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/retry/", true)

		require.Equal(t, http.StatusOK, rec.Code, "retry of a hosted submission should succeed")

		resp := decode[types.RetryResponse](t, rec)
		assert.Equal(t, types.RetryActionRescheduled, resp.Action, "wrong retry action")
	})

	t.Run("AsksForReupload", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploadPending, nil)

		rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/retry/", true)

		require.Equal(t, http.StatusOK, rec.Code, "retry of a pending upload should answer")

		resp := decode[types.RetryResponse](t, rec)
		assert.Equal(t, types.RetryActionReupload, resp.Action, "server cannot redo the upload")
	})

	t.Run("RejectsStatesWithNothingToRetry", func(t *testing.T) {
		for _, state := range []types.SubmissionState{
			types.SubmissionStateInitial,
			types.SubmissionStateAnalyzed,
		} {
			t.Run(string(state), func(t *testing.T) {
				ts := newTestServer(t)
				submission := ts.seedSubmission(t, ts.auth.ID, state, nil)

				rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/retry/", true)

				assert.Equal(t, http.StatusBadRequest, rec.Code, "state %s has nothing to retry", state)
			})
		}
	})
}

func TestCheckNowRoute(t *testing.T) {
	t.Run("SchedulesImmediateCheck", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateUploaded, func(s *models.Submission) {
			s.PollRetries = 2
		})

		ts.queue.EXPECT().
			Enqueue(gomock.Any(), types.NewCheckReadyTask(submission.ID.String(), 0), time.Duration(0)).
			Return(nil).
			Times(1)

		rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/check-now/", true)

		require.Equal(t, http.StatusOK, rec.Code, "check-now while polling should succeed")

		resp := decode[types.SubmissionStatusResponse](t, rec)
		assert.Equal(t, types.SubmissionStateUploaded, resp.State, "wrong response state")
	})

	t.Run("RejectsWhenNotPolling", func(t *testing.T) {
		ts := newTestServer(t)
		submission := ts.seedSubmission(t, ts.auth.ID, types.SubmissionStateHosted, nil)

		rec := ts.request(http.MethodPost, "/v1/submission/"+submission.ID.String()+"/check-now/", true)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "only polling submissions can be checked early")
	})
}
