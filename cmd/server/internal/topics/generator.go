package topics

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/analyzer"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

var tracer = otel.Tracer(
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/topics",
)

// Generator runs the scheduled generate_topic step.
//
// Topic writes touch only the topic columns and never the state machine, so a
// failed or slow generation cannot wedge video processing, and video steps
// racing a topic write cannot invalidate it.
type Generator struct {
	db       *gorm.DB
	analyzer analyzer.Client
}

func NewGenerator(db *gorm.DB, analyzerClient analyzer.Client) *Generator {
	return &Generator{db: db, analyzer: analyzerClient}
}

func (g *Generator) persistTopic(
	ctx context.Context,
	submissionID uuid.UUID,
	topic string,
	topicError *string,
) error {
	return g.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]any{
			"topic":       topic,
			"topic_error": topicError,
		}).Error
}

// Generate produces the practice topic for one submission. On failure the
// slot gets a generic but usable placeholder plus the recorded error, leaving
// the owner a manual regenerate.
func (g *Generator) Generate(ctx context.Context, submissionID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "Generator.Generate", trace.WithAttributes(
		attribute.String("submission.id", submissionID.String()),
	))
	defer span.End()

	submission, err := models.ByID[models.Submission](ctx, g.db, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(nil)
			span.SetStatus(codes.Ok, "submission no longer exists")
			return nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load submission")
		return err
	}

	challenge, err := models.ByID[models.Challenge](ctx, g.db, submission.ChallengeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load challenge")
		return err
	}

	history, err := g.historyFor(ctx, challenge.ID, submission.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load history")
		return err
	}

	prompt := BuildPrompt(
		challenge.GoalPrompt,
		challenge.ImprovementTags,
		history,
		submission.DayIndex,
		challenge.RequiredTakes,
	)

	topic, err := g.analyzer.GenerateText(ctx, prompt)
	if err != nil {
		span.AddEvent("generation_failed", trace.WithAttributes(
			attribute.String("error", err.Error()),
		))

		message := err.Error()
		persistErr := g.persistTopic(
			ctx,
			submission.ID,
			PlaceholderTopic(challenge.GoalPrompt, submission.DayIndex),
			&message,
		)
		if persistErr != nil {
			span.RecordError(persistErr)
			span.SetStatus(codes.Error, "failed to persist placeholder topic")
			return persistErr
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "recorded placeholder topic")
		return nil
	}

	topic = strings.TrimSpace(topic)
	if topic == "" {
		message := "analyzer returned an empty topic"
		err := g.persistTopic(
			ctx,
			submission.ID,
			PlaceholderTopic(challenge.GoalPrompt, submission.DayIndex),
			&message,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to persist placeholder topic")
			return err
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "recorded placeholder topic")
		return nil
	}

	err = g.persistTopic(ctx, submission.ID, topic, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist topic")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "generated topic")
	return nil
}

// historyFor collects earlier sibling slots' topics and score summaries.
// Placeholder topics from failed generations carry a topic_error and are
// skipped so a bad day does not echo through the rest of the challenge.
func (g *Generator) historyFor(
	ctx context.Context,
	challengeID uuid.UUID,
	excludeID uuid.UUID,
) (History, error) {
	submissions, err := models.SubmissionHistory(ctx, g.db, challengeID)
	if err != nil {
		return History{}, err
	}

	var history History
	for _, sibling := range submissions {
		if sibling.ID == excludeID {
			continue
		}

		if sibling.Topic.Valid && !sibling.TopicError.Valid {
			history.Topics = append(history.Topics, sibling.Topic.V)
		}

		if sibling.State == types.SubmissionStateAnalyzed {
			history.AnalysisSummaries = append(
				history.AnalysisSummaries,
				sibling.Analysis.Data().Summary(),
			)
		}
	}

	return history, nil
}
