// Package v1 is the JSON API surface: request parsing, error mapping, and
// delegation to the domain services.
package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/studypace/studypace/internal/profile"
	"github.com/studypace/studypace/internal/util"
	apierr "github.com/studypace/studypace/server/internal/errors"
	"github.com/studypace/studypace/server/internal/observability"
	"github.com/studypace/studypace/server/middleware"
	"github.com/studypace/studypace/server/service/planner"
	"github.com/studypace/studypace/server/service/readiness"
	"github.com/studypace/studypace/server/service/review"
	"github.com/studypace/studypace/server/stats"
	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// APIV1Service bundles the domain services behind the /api/v1 routes.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	Scheduler *srs.Scheduler
	Projector *srs.Projector
	Review    *review.Service
	Planner   *planner.Service
	Readiness *readiness.Service
	Collector *stats.Collector

	metrics *observability.Metrics
	limiter *middleware.RateLimiter
}

// NewAPIV1Service wires the services from the profile's tuning.
func NewAPIV1Service(p *profile.Profile, st *store.Store, collector *stats.Collector) (*APIV1Service, error) {
	params := schedulerParams(p)
	scheduler, err := srs.NewScheduler(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build scheduler")
	}
	projector, err := srs.NewProjector(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build projector")
	}

	return &APIV1Service{
		Profile:   p,
		Store:     st,
		Scheduler: scheduler,
		Projector: projector,
		Review:    review.NewService(st, scheduler),
		Planner:   planner.NewService(st, planner.ConfigFromProfile(p)),
		Readiness: readiness.NewService(st, projector),
		Collector: collector,
		metrics:   observability.NewMetrics(),
		limiter:   middleware.NewRateLimiter(10, 20),
	}, nil
}

// schedulerParams maps profile tunables onto the memory model config.
func schedulerParams(p *profile.Profile) srs.Params {
	params := srs.DefaultParams()
	params.TargetRetention = p.TargetRetention
	params.MaximumIntervalDays = p.MaxIntervalDays
	params.EnableFuzz = p.EnableFuzz
	params.GraduateGoodFirstRating = p.GraduateGoodFirstRating
	params.RiskSafeFloor = p.RiskSafeFloor
	params.RiskWarnFloor = p.RiskWarnFloor
	return params
}

// Register attaches all v1 routes to the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	group := e.Group("/api/v1")
	group.Use(echomw.CORS())
	group.Use(s.requestMiddleware())
	group.Use(s.limiter.Middleware())

	group.GET("/users/:user/cards/:question", s.GetCard)
	group.PUT("/users/:user/cards/:question", s.PutCard)
	group.GET("/users/:user/cards/:question/preview", s.PreviewCard)
	group.GET("/users/:user/due-cards", s.ListDueCards)
	group.POST("/attempts", s.RecordAttempt)
	group.POST("/users/:user/recalculate", s.RecalculateElapsed)

	group.GET("/courses/:course/schedule", s.ListTopicSchedule)
	group.GET("/users/:user/plan", s.BuildDailyPlan)
	group.GET("/users/:user/plan/feed", s.PlanFeed)
	group.GET("/users/:user/courses/:course/readiness", s.CourseReadiness)
	group.GET("/stats", s.GetStats)
}

// Close releases service-held resources.
func (s *APIV1Service) Close() {
	s.Planner.Close()
}

// requestMiddleware logs each request with a generated request ID and feeds
// the request metrics.
func (s *APIV1Service) requestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := pathInt32(c, "user")
			reqCtx := observability.NewRequestContext(slog.Default(), c.Path(), userID)
			c.SetRequest(c.Request().WithContext(
				observability.WithRequestContext(c.Request().Context(), reqCtx)))

			err := next(c)

			duration := reqCtx.Duration()
			s.metrics.RecordRequest(c.Path(), duration, err != nil)
			if err != nil {
				reqCtx.Warn("request failed",
					slog.String("method", c.Request().Method),
					slog.Int64(observability.LogFieldDuration, duration.Milliseconds()),
					slog.String("error", err.Error()))
				return err
			}
			reqCtx.Debug("request served",
				slog.String("method", c.Request().Method),
				slog.Int64(observability.LogFieldDuration, duration.Milliseconds()))
			return nil
		}
	}
}

// errorResponse is the JSON body of every non-2xx reply.
type errorResponse struct {
	Code    apierr.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func replyError(c echo.Context, status int, code apierr.ErrorCode, message string) error {
	return c.JSON(status, &errorResponse{Code: code, Message: message})
}

func replyBadRequest(c echo.Context, message string) error {
	return replyError(c, http.StatusBadRequest, apierr.ErrCodeInvalidArgument, message)
}

func replyNotFound(c echo.Context, message string) error {
	return replyError(c, http.StatusNotFound, apierr.ErrCodeNotFound, message)
}

func replyConflict(c echo.Context, message string) error {
	return replyError(c, http.StatusConflict, apierr.ErrCodeConflict, message)
}

func replyInternal(c echo.Context, err error) error {
	slog.Error("internal error", slog.String("error", err.Error()))
	return replyError(c, http.StatusInternalServerError, apierr.ErrCodeInternal, "internal error")
}

// parseAsOf reads an optional asOf query param as RFC 3339 or unix seconds.
func parseAsOf(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if unix, err := strconv.ParseInt(value, 10, 64); err == nil && unix > 0 {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.Errorf("unparsable time %q", value)
}

// pathInt32 parses a numeric path parameter.
func pathInt32(c echo.Context, name string) (int32, error) {
	return util.ConvertStringToInt32(c.Param(name))
}
