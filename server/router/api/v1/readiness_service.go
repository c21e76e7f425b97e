package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/studypace/studypace/server/service/readiness"
)

// CourseReadiness reports projected exam-day retention for one course.
func (s *APIV1Service) CourseReadiness(c echo.Context) error {
	userID, err := pathInt32(c, "user")
	if err != nil {
		return replyBadRequest(c, "invalid user id")
	}

	var horizonDays *float64
	if raw := c.QueryParam("horizonDays"); raw != "" {
		horizon, err := strconv.ParseFloat(raw, 64)
		if err != nil || horizon < 0 {
			return replyBadRequest(c, "invalid horizonDays")
		}
		horizonDays = &horizon
	}

	report, err := s.Readiness.CourseReadiness(c.Request().Context(), userID, c.Param("course"), horizonDays)
	if errors.Is(err, readiness.ErrCourseNotFound) {
		return replyNotFound(c, "course not found")
	}
	if err != nil {
		return replyInternal(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
