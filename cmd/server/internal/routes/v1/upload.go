package v1

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	srverr "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/error"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/pipeline"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/response"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/types"
)

func (h *Handler) UploadTarget(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "UploadTarget")
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

	span.AddEvent("issuing upload target")
	resp, err := h.coordinator.IssueUploadTarget(ctx, submission)
	if err != nil {
		if errors.Is(err, pipeline.ErrWrongState) {
			span.SetStatus(codes.Ok, "submission cannot accept an upload target")
			span.RecordError(err)
			return echo.NewHTTPError(
				http.StatusConflict,
				types.StringError(
					fmt.Sprintf("submission in state %s cannot accept a new upload", submission.State),
				),
			)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to issue upload target")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Uploaded(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Uploaded")
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

	span.AddEvent("marking submission uploaded")
	err := h.coordinator.MarkUploaded(ctx, submission)
	if err != nil {
		if errors.Is(err, pipeline.ErrWrongState) {
			span.SetStatus(codes.Ok, "submission is not awaiting an upload")
			span.RecordError(err)
			return echo.NewHTTPError(
				http.StatusConflict,
				types.StringError(
					fmt.Sprintf("submission in state %s is not awaiting an upload", submission.State),
				),
			)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to mark submission uploaded")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, submissionStatus(submission))
}
