package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/score"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

// Submission is one day-slot of a challenge.
type Submission struct {
	Model
	State          types.SubmissionState
	ErrorMessage   datatypes.Null[string]
	Topic          datatypes.Null[string]
	TopicError     datatypes.Null[string]
	HostAssetID    datatypes.Null[string]
	UploadURL      datatypes.Null[string]
	TranscodedURL  datatypes.Null[string]
	AnalyzerFileID datatypes.Null[string]
	Analysis       datatypes.JSONType[score.Analysis]
	RawAnalysis    datatypes.Null[string]
	PollStartedAt  datatypes.Null[time.Time]
	OwnerID        uuid.UUID `gorm:"type:uuid"`
	ChallengeID    uuid.UUID `gorm:"type:uuid"`
	DayIndex       int
	PollRetries    int
	LockVersion    int
}

func (Submission) TableName() string {
	return "submission"
}

func (s Submission) GetID() uuid.UUID {
	return s.ID
}

// UpdateGuarded applies updates to the submission row only while its
// persisted state and lock version still match this copy. A false return
// means another delivery advanced the row first and the caller should treat
// its own step as a stale no-op.
func (s *Submission) UpdateGuarded(
	ctx context.Context,
	db *gorm.DB,
	updates map[string]any,
) (bool, error) {
	ctx, span := tracer.Start(ctx, "Submission.UpdateGuarded")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.id", s.ID.String()),
		attribute.String("submission.state", string(s.State)),
		attribute.Int("submission.lock_version", s.LockVersion),
	)

	db = db.WithContext(ctx)

	updates["lock_version"] = gorm.Expr("lock_version + 1")

	result := db.Model(&Submission{}).
		Where("id = ? AND state = ? AND lock_version = ?", s.ID, s.State, s.LockVersion).
		Updates(updates)
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, "failed to update submission")
		return false, fmt.Errorf("failed to update submission: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		span.AddEvent("submission row moved underneath the update")
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "stale update skipped")
		return false, nil
	}

	// Keep this copy usable for a follow-up guarded write.
	s.LockVersion++
	if state, ok := updates["state"].(types.SubmissionState); ok {
		s.State = state
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "updated submission")
	return true, nil
}

// CurrentSubmission returns the open slot of a challenge, the single
// submission still in the initial state.
func CurrentSubmission(
	ctx context.Context,
	db *gorm.DB,
	challengeID uuid.UUID,
) (*Submission, error) {
	ctx, span := tracer.Start(ctx, "CurrentSubmission")
	defer span.End()

	span.SetAttributes(attribute.String("challenge.id", challengeID.String()))

	db = db.WithContext(ctx)

	var submission Submission
	err := db.
		Where("challenge_id = ? AND state = ?", challengeID, types.SubmissionStateInitial).
		First(&submission).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get current submission")
		return nil, err
	}

	return &submission, nil
}

// CountSubmissions counts every slot materialized for a challenge so far.
func CountSubmissions(ctx context.Context, db *gorm.DB, challengeID uuid.UUID) (int64, error) {
	ctx, span := tracer.Start(ctx, "CountSubmissions")
	defer span.End()

	span.SetAttributes(attribute.String("challenge.id", challengeID.String()))

	db = db.WithContext(ctx)

	var count int64
	err := db.Model(&Submission{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to count submissions")
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}

	return count, nil
}

// SubmissionHistory returns a challenge's earlier slots ordered by day index,
// used as context when prompting for later topics.
func SubmissionHistory(
	ctx context.Context,
	db *gorm.DB,
	challengeID uuid.UUID,
) ([]Submission, error) {
	ctx, span := tracer.Start(ctx, "SubmissionHistory")
	defer span.End()

	span.SetAttributes(attribute.String("challenge.id", challengeID.String()))

	db = db.WithContext(ctx)

	var submissions []Submission
	err := db.
		Where("challenge_id = ?", challengeID).
		Order("day_index ASC").
		Find(&submissions).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list submission history")
		return nil, fmt.Errorf("failed to list submission history: %w", err)
	}

	return submissions, nil
}
