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

// RegenerateTopic queues a fresh topic generation for the slot. Generation is
// asynchronous; the caller polls the submission status for the result.
func (h *Handler) RegenerateTopic(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "RegenerateTopic")
	defer span.End()

	submission, ok := c.Get("submission").(*models.Submission)
	if !ok {
		span.RecordError(srverr.ErrTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
		return response.InternalServerError
	}

	span.SetAttributes(attribute.String("submission.id", submission.ID.String()))

	span.AddEvent("queueing topic generation")
	err := h.queue.Enqueue(ctx, types.NewGenerateTopicTask(submission.ID.String()), 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to queue topic generation")
		return response.InternalServerError
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "")
	return c.JSON(http.StatusAccepted, submissionStatus(submission))
}
