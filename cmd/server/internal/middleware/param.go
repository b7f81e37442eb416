package middleware

import (
	"errors"
	"reflect"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/response"
)

// PopulateFromIDParam loads the record whose id is in the `paramName` route
// segment and stores it on the echo context under `contextName`. A
// non-uuid id is reported as not found rather than bad request, so probing
// cannot distinguish malformed from missing.
func PopulateFromIDParam[T models.ClipcoachModel](
	h *Handler,
	paramName string,
	contextName string,
) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "PopulateFromIDParam")
			defer span.End()

			span.SetAttributes(
				attribute.String("paramName", paramName),
				attribute.String("contextName", contextName),
				attribute.String("type", reflect.TypeOf((*T)(nil)).Elem().String()),
			)

			db := h.DB.WithContext(ctx)

			rawID := c.Param(paramName)
			span.SetAttributes(attribute.String("id.raw", rawID))

			id, err := uuid.Parse(rawID)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "id param is not a uuid")
				return response.NotFoundError
			}

			span.SetAttributes(attribute.String("id.parsed", id.String()))

			record, err := models.ByID[T](ctx, db, id)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to load record by id")

				if errors.Is(err, gorm.ErrRecordNotFound) {
					return response.NotFoundError
				}

				return response.InternalServerError
			}

			c.Set(contextName, record)

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "loaded record by id")
			return next(c)
		}
	}
}
