package progression

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	mockqueue "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue/mock"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(&models.Challenge{}, &models.Submission{})
	require.NoError(t, err, "failed to migrate test database")

	// Same partial index the real schema carries: one open slot per challenge.
	err = db.Exec(
		"CREATE UNIQUE INDEX idx_submission_open_slot ON submission (challenge_id) WHERE state = 'initial'",
	).Error
	require.NoError(t, err, "failed to create open slot index")

	return db
}

func seedChallenge(t *testing.T, db *gorm.DB, requiredTakes int, autoTopics bool) *models.Challenge {
	t.Helper()

	challenge := models.Challenge{
		Title:         "daily pitch",
		GoalPrompt:    "sound confident on camera",
		OwnerID:       uuid.New(),
		RequiredTakes: requiredTakes,
		AutoTopics:    autoTopics,
	}
	require.NoError(t, db.Create(&challenge).Error, "failed to seed challenge")
	return &challenge
}

func seedAnalyzed(t *testing.T, db *gorm.DB, challenge *models.Challenge, dayIndex int) *models.Submission {
	t.Helper()

	submission := models.Submission{
		State:       types.SubmissionStateAnalyzed,
		OwnerID:     challenge.OwnerID,
		ChallengeID: challenge.ID,
		DayIndex:    dayIndex,
	}
	require.NoError(t, db.Create(&submission).Error, "failed to seed submission")
	return &submission
}

func TestCreateSlot(t *testing.T) {
	t.Run("CreatesOpenSlot", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)
		controller := NewController(db, queuer)

		challenge := seedChallenge(t, db, 7, false)

		submission, err := controller.CreateSlot(ctx, challenge, 0)

		require.NoError(t, err)
		assert.Equal(t, types.SubmissionStateInitial, submission.State, "new slot should be open")
		assert.Equal(t, 0, submission.DayIndex, "wrong day index")
		assert.Equal(t, challenge.OwnerID, submission.OwnerID, "slot should inherit the owner")
	})

	t.Run("DuplicateCreationReturnsExistingSlot", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)
		controller := NewController(db, queuer)

		challenge := seedChallenge(t, db, 7, false)

		first, err := controller.CreateSlot(ctx, challenge, 0)
		require.NoError(t, err)

		second, err := controller.CreateSlot(ctx, challenge, 0)

		require.NoError(t, err, "duplicate creation must be benign")
		assert.Equal(t, first.ID, second.ID, "should hand back the existing open slot")

		var count int64
		require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "only one open slot may exist")
	})

	t.Run("AutoTopicsSchedulesGeneration", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)
		controller := NewController(db, queuer)

		challenge := seedChallenge(t, db, 7, true)

		queuer.EXPECT().
			Enqueue(gomock.Any(), gomock.AssignableToTypeOf(types.StepTask{}), time.Duration(0)).
			DoAndReturn(func(_ context.Context, message any, _ time.Duration) error {
				task, ok := message.(types.StepTask)
				require.True(t, ok, "expected a step task")
				assert.Equal(t, types.StepGenerateTopic, task.Kind, "wrong task kind")
				return nil
			}).
			Times(1)

		_, err := controller.CreateSlot(ctx, challenge, 0)

		require.NoError(t, err)
	})
}

func TestOnAnalyzed(t *testing.T) {
	t.Run("CreatesExactlyOneNextSlot", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)
		controller := NewController(db, queuer)

		challenge := seedChallenge(t, db, 7, false)
		analyzed := seedAnalyzed(t, db, challenge, 0)

		err := controller.OnAnalyzed(ctx, analyzed)

		require.NoError(t, err)

		next, err := models.CurrentSubmission(ctx, db, challenge.ID)
		require.NoError(t, err, "a new open slot should exist")
		assert.Equal(t, 1, next.DayIndex, "next slot should be the following day")

		var count int64
		require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
		assert.Equal(t, int64(2), count, "exactly one new slot should appear")
	})

	t.Run("RedeliveryDoesNotDuplicateSlots", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)
		controller := NewController(db, queuer)

		challenge := seedChallenge(t, db, 7, false)
		analyzed := seedAnalyzed(t, db, challenge, 0)

		require.NoError(t, controller.OnAnalyzed(ctx, analyzed))
		require.NoError(t, controller.OnAnalyzed(ctx, analyzed))

		var count int64
		require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
		assert.Equal(t, int64(2), count, "redelivery must not add slots")
	})

	t.Run("CompleteChallengeGetsNoSlot", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)
		controller := NewController(db, queuer)

		challenge := seedChallenge(t, db, 2, false)
		seedAnalyzed(t, db, challenge, 0)
		last := seedAnalyzed(t, db, challenge, 1)

		err := controller.OnAnalyzed(ctx, last)

		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.Submission{}).Count(&count).Error)
		assert.Equal(t, int64(2), count, "finished challenges stop producing slots")
	})
}
