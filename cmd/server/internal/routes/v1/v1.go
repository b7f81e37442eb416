package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	srverr "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/error"
	servermiddleware "github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/middleware"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/models"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/pipeline"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/progression"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/cmd/server/internal/ratelimit"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/config"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/logger"
	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue"
)

const name = "github.com/clipcoach/clipcoach-api/clipcoach-api/server/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	DB          *gorm.DB
	coordinator *pipeline.Coordinator
	progression *progression.Controller
	queue       queue.Queuer
	config      *config.Config
}

func NewHandler(
	db *gorm.DB,
	coordinator *pipeline.Coordinator,
	progressionController *progression.Controller,
	queuer queue.Queuer,
	cfg *config.Config,
) Handler {
	return Handler{
		DB:          db,
		coordinator: coordinator,
		progression: progressionController,
		queue:       queuer,
		config:      cfg,
	}
}

func NewRedisLimiter(
	redisHost string,
	limiterKey string,
	perMinute int64,
	failOpen bool,
	onlyMethod *string,
) middleware.RateLimiterConfig {
	l := logger.Logger
	var store middleware.RateLimiterStore

	redisAddr := redisHost + ":6379"
	l.Debug("Setting up rate limiter with Redis", "redis", redisAddr)
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	rdConf := &ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	}
	store = ratelimit.NewRedisLimitStore(*rdConf)

	skipper := middleware.DefaultSkipper
	if onlyMethod != nil {
		skipper = func(c echo.Context) bool {
			return c.Request().Method != *onlyMethod
		}
	}

	return middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			auth, ok := c.Get("auth").(*models.Auth)
			if !ok {
				return "", srverr.ErrTypeAssertMismatch
			}
			return auth.ID.String(), nil
		},
		ErrorHandler: func(context echo.Context, _ error) error {
			return context.JSON(http.StatusForbidden, nil)
		},
		DenyHandler: func(context echo.Context, _ string, _ error) error {
			return context.JSON(http.StatusTooManyRequests, nil)
		},
	}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	v1Group := e.Group("/v1", middleware.BasicAuth(middlewareHandler.BasicAuthValidator))

	if h.config.RateLimit != nil && h.config.RateLimit.GlobalPerMinute > 0 {
		v1Group.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"global",
					h.config.RateLimit.GlobalPerMinute,
					h.config.RateLimit.FailOpen,
					nil,
				),
			),
		)
	} else {
		l.Warn("not configured to have a global rate limit")
	}

	v1Group.GET("/ping/", h.Ping)

	challengeGroup := v1Group.Group("/challenge")
	challengeGroup.POST("/", h.CreateChallenge)
	challengeGroup.GET(
		"/:challenge_id/",
		h.ChallengeStatus,
		servermiddleware.PopulateFromIDParam[models.Challenge](middlewareHandler, "challenge_id", "challenge"),
		servermiddleware.OwnsChallenge("auth", "challenge"),
	)

	submissionGroup := v1Group.Group(
		"/submission/:submission_id",
		servermiddleware.PopulateFromIDParam[models.Submission](middlewareHandler, "submission_id", "submission"),
		servermiddleware.OwnsSubmission("auth", "submission"),
	)

	if h.config.RateLimit != nil && h.config.RateLimit.RetryPerMinute > 0 {
		post := http.MethodPost

		submissionGroup.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.config.RateLimit.RedisHost,
					"retry",
					h.config.RateLimit.RetryPerMinute,
					h.config.RateLimit.FailOpen,
					&post,
				),
			),
		)
	} else {
		l.Warn("not configured to have a retry rate limit")
	}

	submissionGroup.GET("/", h.SubmissionStatus)
	submissionGroup.POST("/upload-target/", h.UploadTarget)
	submissionGroup.POST("/uploaded/", h.Uploaded)
	submissionGroup.POST("/retry/", h.Retry)
	submissionGroup.POST("/check-now/", h.CheckNow)
	submissionGroup.POST("/topic/regenerate/", h.RegenerateTopic)
}
