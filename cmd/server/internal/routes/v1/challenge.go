package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	srverr "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/error"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/response"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

func (h *Handler) CreateChallenge(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "CreateChallenge")
	defer span.End()

	db := h.DB.WithContext(ctx)

	span.AddEvent("received challenge creation request")

	auth, ok := c.Get("auth").(*models.Auth)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("auth.note", auth.Note),
		attribute.String("auth.id", auth.ID.String()),
	)

	var rdata types.ChallengeCreate

	span.AddEvent("parsing request body")
	err := c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	challenge := models.Challenge{
		Title:           rdata.Title,
		GoalPrompt:      rdata.GoalPrompt,
		ImprovementTags: datatypes.NewJSONSlice(rdata.ImprovementTags),
		OwnerID:         auth.ID,
		RequiredTakes:   rdata.RequiredTakes,
		AutoTopics:      rdata.AutoTopics,
	}

	span.AddEvent("creating challenge")
	err = db.Create(&challenge).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create challenge")
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("challenge.id", challenge.ID.String()))

	span.AddEvent("creating first day slot")
	submission, err := h.progression.CreateSlot(ctx, &challenge, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create first day slot")
		return response.InternalServerError
	}

	currentID := submission.ID.String()

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusCreated, types.ChallengeResponse{
		ChallengeID:         challenge.ID.String(),
		Title:               challenge.Title,
		GoalPrompt:          challenge.GoalPrompt,
		ImprovementTags:     challenge.ImprovementTags,
		RequiredTakes:       challenge.RequiredTakes,
		AutoTopics:          challenge.AutoTopics,
		CurrentSubmissionID: &currentID,
	})
}

func (h *Handler) ChallengeStatus(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "ChallengeStatus")
	defer span.End()

	db := h.DB.WithContext(ctx)

	challenge, ok := c.Get("challenge").(*models.Challenge)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("challenge: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("challenge.id", challenge.ID.String()))

	submissions, err := models.SubmissionHistory(ctx, db, challenge.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list submissions")
		return response.InternalServerError
	}

	resp := types.ChallengeStatusResponse{
		ChallengeResponse: types.ChallengeResponse{
			ChallengeID:     challenge.ID.String(),
			Title:           challenge.Title,
			GoalPrompt:      challenge.GoalPrompt,
			ImprovementTags: challenge.ImprovementTags,
			RequiredTakes:   challenge.RequiredTakes,
			AutoTopics:      challenge.AutoTopics,
		},
		Submissions: make([]types.SubmissionStatusResponse, 0, len(submissions)),
	}

	for i := range submissions {
		sub := &submissions[i]
		if sub.State == types.SubmissionStateInitial {
			id := sub.ID.String()
			resp.CurrentSubmissionID = &id
		}
		resp.Submissions = append(resp.Submissions, submissionStatus(sub))
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, resp)
}
