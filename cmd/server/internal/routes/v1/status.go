package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/error"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/response"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

// submissionStatus flattens a submission row into its API shape. The scored
// analysis is only surfaced once the pipeline actually finished.
func submissionStatus(submission *models.Submission) types.SubmissionStatusResponse {
	resp := types.SubmissionStatusResponse{
		SubmissionID:  submission.ID.String(),
		ChallengeID:   submission.ChallengeID.String(),
		State:         submission.State,
		ErrorMessage:  models.PtrFromNull(submission.ErrorMessage),
		Topic:         models.PtrFromNull(submission.Topic),
		TopicError:    models.PtrFromNull(submission.TopicError),
		TranscodedURL: models.PtrFromNull(submission.TranscodedURL),
		RawAnalysis:   models.PtrFromNull(submission.RawAnalysis),
		PollRetries:   submission.PollRetries,
	}

	if submission.State == types.SubmissionStateAnalyzed {
		resp.Analysis = submission.Analysis.Data()
	}

	return resp
}

func (h *Handler) SubmissionStatus(c echo.Context) error {
	_, span := tracer.Start(c.Request().Context(), "SubmissionStatus")
	defer span.End()

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(
		attribute.String("submission.id", submission.ID.String()),
		attribute.String("submission.state", string(submission.State)),
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, submissionStatus(submission))
}
