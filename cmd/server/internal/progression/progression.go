// Package progression decides when a challenge gets its next day-slot.
package progression

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/progression",
)

type Controller struct {
	db    *gorm.DB
	queue queue.Queuer
}

func NewController(db *gorm.DB, queuer queue.Queuer) *Controller {
	return &Controller{db: db, queue: queuer}
}

// CreateSlot materializes one day-slot and, when the challenge wants
// automatic topics, schedules generation for it. The partial unique index on
// open slots makes duplicate creation a benign no-op, so callers can repeat
// under at-least-once delivery.
func (c *Controller) CreateSlot(
	ctx context.Context,
	challenge *models.Challenge,
	dayIndex int,
) (*models.Submission, error) {
	ctx, span := tracer.Start(ctx, "Controller.CreateSlot", trace.WithAttributes(
		attribute.String("challenge.id", challenge.ID.String()),
		attribute.Int("day_index", dayIndex),
	))
	defer span.End()

	submission := models.Submission{
		OwnerID:     challenge.OwnerID,
		ChallengeID: challenge.ID,
		DayIndex:    dayIndex,
		State:       types.SubmissionStateInitial,
	}

	err := c.db.WithContext(ctx).Create(&submission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			span.AddEvent("open_slot_already_exists")
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "slot already created")

			existing, err := models.CurrentSubmission(ctx, c.db, challenge.ID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to load existing slot")
				return nil, err
			}
			return existing, nil
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create slot")
		return nil, err
	}

	if challenge.AutoTopics {
		err = c.queue.Enqueue(ctx, types.NewGenerateTopicTask(submission.ID.String()), 0)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to schedule topic generation")
			return nil, err
		}
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created slot")
	return &submission, nil
}

// OnAnalyzed runs after a submission reaches its success terminal. While the
// challenge still owes the owner days, the next slot appears here and nowhere
// else.
func (c *Controller) OnAnalyzed(ctx context.Context, submission *models.Submission) error {
	ctx, span := tracer.Start(ctx, "Controller.OnAnalyzed", trace.WithAttributes(
		attribute.String("submission.id", submission.ID.String()),
		attribute.String("challenge.id", submission.ChallengeID.String()),
	))
	defer span.End()

	challenge, err := models.ByID[models.Challenge](ctx, c.db, submission.ChallengeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load challenge")
		return err
	}

	count, err := models.CountSubmissions(ctx, c.db, challenge.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count submissions")
		return err
	}

	if count >= int64(challenge.RequiredTakes) {
		span.AddEvent("challenge_complete", trace.WithAttributes(
			attribute.Int64("count", count),
		))
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "challenge has all its takes")
		return nil
	}

	_, err = c.CreateSlot(ctx, challenge, int(count))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create next slot")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "advanced challenge")
	return nil
}
