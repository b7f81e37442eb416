package topics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	mockanalyzer "github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer/mock"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/score"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(&models.Challenge{}, &models.Submission{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func seedSlot(
	t *testing.T,
	db *gorm.DB,
	challenge *models.Challenge,
	dayIndex int,
	mutate func(*models.Submission),
) *models.Submission {
	t.Helper()

	submission := models.Submission{
		State:       types.SubmissionStateInitial,
		OwnerID:     challenge.OwnerID,
		ChallengeID: challenge.ID,
		DayIndex:    dayIndex,
	}
	if mutate != nil {
		mutate(&submission)
	}
	require.NoError(t, db.Create(&submission).Error, "failed to seed submission")
	return &submission
}

func TestGenerate(t *testing.T) {
	newChallenge := func(t *testing.T, db *gorm.DB) *models.Challenge {
		t.Helper()
		challenge := models.Challenge{
			Title:         "daily pitch",
			GoalPrompt:    "sound confident on camera",
			OwnerID:       uuid.New(),
			RequiredTakes: 10,
			AutoTopics:    true,
		}
		require.NoError(t, db.Create(&challenge).Error, "failed to seed challenge")
		return &challenge
	}

	t.Run("PersistsGeneratedTopic", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		analyzerClient := mockanalyzer.NewMockClient(ctrl)
		generator := NewGenerator(db, analyzerClient)

		challenge := newChallenge(t, db)
		submission := seedSlot(t, db, challenge, 0, nil)

		analyzerClient.EXPECT().
			GenerateText(gomock.Any(), gomock.Any()).
			Return("  Pitch your favorite tool to a skeptic.\n", nil).
			Times(1)

		err := generator.Generate(ctx, submission.ID)

		require.NoError(t, err)

		var stored models.Submission
		require.NoError(t, db.First(&stored, "id = ?", submission.ID).Error)
		assert.Equal(t, "Pitch your favorite tool to a skeptic.", stored.Topic.V, "topic should be trimmed and stored")
		assert.False(t, stored.TopicError.Valid, "success must clear any topic error")
	})

	t.Run("FailurePersistsPlaceholder", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		analyzerClient := mockanalyzer.NewMockClient(ctrl)
		generator := NewGenerator(db, analyzerClient)

		challenge := newChallenge(t, db)
		submission := seedSlot(t, db, challenge, 3, nil)

		analyzerClient.EXPECT().
			GenerateText(gomock.Any(), gomock.Any()).
			Return("", errors.New("model overloaded")).
			Times(1)

		err := generator.Generate(ctx, submission.ID)

		require.NoError(t, err, "generation failure is handled, not propagated")

		var stored models.Submission
		require.NoError(t, db.First(&stored, "id = ?", submission.ID).Error)
		assert.Equal(t, PlaceholderTopic(challenge.GoalPrompt, 3), stored.Topic.V, "placeholder should land")
		assert.Contains(t, stored.TopicError.V, "model overloaded", "cause should be recorded")
	})

	t.Run("EmptyTopicPersistsPlaceholder", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		analyzerClient := mockanalyzer.NewMockClient(ctrl)
		generator := NewGenerator(db, analyzerClient)

		challenge := newChallenge(t, db)
		submission := seedSlot(t, db, challenge, 0, nil)

		analyzerClient.EXPECT().
			GenerateText(gomock.Any(), gomock.Any()).
			Return("   \n", nil).
			Times(1)

		err := generator.Generate(ctx, submission.ID)

		require.NoError(t, err)

		var stored models.Submission
		require.NoError(t, db.First(&stored, "id = ?", submission.ID).Error)
		assert.True(t, stored.TopicError.Valid, "empty output should count as a failure")
	})

	t.Run("MissingSubmissionIsNoOp", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		analyzerClient := mockanalyzer.NewMockClient(ctrl)
		generator := NewGenerator(db, analyzerClient)

		err := generator.Generate(ctx, uuid.New())

		assert.NoError(t, err, "stale tasks must not fail")
	})

	t.Run("PromptCarriesHistoryWithoutPlaceholders", func(t *testing.T) {
		ctx := context.Background()
		db := openTestDB(t)
		ctrl := gomock.NewController(t)
		analyzerClient := mockanalyzer.NewMockClient(ctrl)
		generator := NewGenerator(db, analyzerClient)

		challenge := newChallenge(t, db)

		seedSlot(t, db, challenge, 0, func(s *models.Submission) {
			s.State = types.SubmissionStateAnalyzed
			s.Topic = models.NewNullFromData("describe your morning routine")
			s.Analysis = datatypes.NewJSONType(score.Analysis{
				VoiceClarity: 70, Confidence: 60, Pacing: 55, Engagement: 65,
			})
		})
		seedSlot(t, db, challenge, 1, func(s *models.Submission) {
			s.State = types.SubmissionStateAnalyzed
			s.Topic = models.NewNullFromData(PlaceholderTopic(challenge.GoalPrompt, 1))
			s.TopicError = models.NewNullFromData("model overloaded")
		})
		submission := seedSlot(t, db, challenge, 2, nil)

		analyzerClient.EXPECT().
			GenerateText(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, prompt string) (string, error) {
				assert.Contains(t, prompt, "describe your morning routine", "real topics feed the prompt")
				assert.NotContains(
					t, prompt, PlaceholderTopic(challenge.GoalPrompt, 1),
					"placeholder topics must not echo forward",
				)
				assert.Contains(t, prompt, "voice clarity 70", "score summaries feed the prompt")
				return "Defend an opinion you disagree with.", nil
			}).
			Times(1)

		err := generator.Generate(ctx, submission.ID)

		require.NoError(t, err)
	})
}
