package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	srverr "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/error"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/response"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/logger"
)

// Ensures the authenticated user owns the submission loaded at
// `submissionKey`. Non-owners get a 404 rather than a 403 so submission ids
// are not probeable.
func OwnsSubmission(authKey, submissionKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "OwnsSubmission", trace.WithAttributes(
				attribute.String("authKey", authKey),
				attribute.String("submissionKey", submissionKey),
			))
			defer span.End()

			auth, ok := c.Get(authKey).(*models.Auth)
			if !ok {
				span.RecordError(srverr.ErrTypeAssertMismatch)
				span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", srverr.ErrTypeAssertMismatch))
				return response.InternalServerError
			}

			submission, ok := c.Get(submissionKey).(*models.Submission)
			if !ok {
				span.RecordError(srverr.ErrTypeAssertMismatch)
				span.SetStatus(codes.Error, fmt.Sprintf("submission: %s", srverr.ErrTypeAssertMismatch))
				return response.InternalServerError
			}

			if submission.OwnerID != auth.ID {
				logger.Logger.DebugContext(ctx, "rejecting access to non-owned submission",
					"submission", submission.ID, "auth", auth.ID)
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "not the owner")
				return response.NotFoundError
			}

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "checked ownership")
			return next(c)
		}
	}
}

// Same check for a challenge loaded at `challengeKey`.
func OwnsChallenge(authKey, challengeKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "OwnsChallenge", trace.WithAttributes(
				attribute.String("authKey", authKey),
				attribute.String("challengeKey", challengeKey),
			))
			defer span.End()

			auth, ok := c.Get(authKey).(*models.Auth)
			if !ok {
				span.RecordError(srverr.ErrTypeAssertMismatch)
				span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", srverr.ErrTypeAssertMismatch))
				return response.InternalServerError
			}

			challenge, ok := c.Get(challengeKey).(*models.Challenge)
			if !ok {
				span.RecordError(srverr.ErrTypeAssertMismatch)
				span.SetStatus(codes.Error, fmt.Sprintf("challenge: %s", srverr.ErrTypeAssertMismatch))
				return response.InternalServerError
			}

			if challenge.OwnerID != auth.ID {
				logger.Logger.DebugContext(ctx, "rejecting access to non-owned challenge",
					"challenge", challenge.ID, "auth", auth.ID)
				span.RecordError(nil)
				span.SetStatus(codes.Ok, "not the owner")
				return response.NotFoundError
			}

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "checked ownership")
			return next(c)
		}
	}
}
