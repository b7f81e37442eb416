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

func (h *Handler) Retry(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Retry")
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

	span.AddEvent("retrying pipeline step")
	resp, err := h.coordinator.RetryStep(ctx, submission)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotRetryable) {
			span.SetStatus(codes.Ok, "submission is not in a retryable state")
			span.RecordError(err)
			return echo.NewHTTPError(
				http.StatusBadRequest,
				types.StringError(
					fmt.Sprintf("submission in state %s has nothing to retry", submission.State),
				),
			)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to retry pipeline step")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) CheckNow(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "CheckNow")
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

	span.AddEvent("forcing a host readiness check")
	err := h.coordinator.CheckStatusNow(ctx, submission)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotPolling) {
			span.SetStatus(codes.Ok, "submission is not polling")
			span.RecordError(err)
			return echo.NewHTTPError(
				http.StatusBadRequest,
				types.StringError(
					fmt.Sprintf("submission in state %s is not polling the video host", submission.State),
				),
			)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to force a readiness check")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusOK, submissionStatus(submission))
}
