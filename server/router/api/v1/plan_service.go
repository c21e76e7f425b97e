package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/studypace/studypace/server/service/planner"
)

func (s *APIV1Service) parsePlanRequest(c echo.Context) (*planner.BuildPlanRequest, error) {
	userID, err := pathInt32(c, "user")
	if err != nil {
		return nil, errors.New("invalid user id")
	}
	request := &planner.BuildPlanRequest{UserID: userID}
	if courseUID := c.QueryParam("course"); courseUID != "" {
		request.CourseUID = &courseUID
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, errors.Errorf("invalid limit %q", raw)
		}
		request.Limit = limit
	}
	if raw := c.QueryParam("paceOffset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.Errorf("invalid paceOffset %q", raw)
		}
		request.PaceOffsetDays = offset
	}
	return request, nil
}

// BuildDailyPlan returns today's bounded study plan. An empty plan is a 200
// with a machine-readable reason, never an error.
func (s *APIV1Service) BuildDailyPlan(c echo.Context) error {
	request, err := s.parsePlanRequest(c)
	if err != nil {
		return replyBadRequest(c, err.Error())
	}
	plan, err := s.Planner.BuildPlan(c.Request().Context(), request)
	if errors.Is(err, planner.ErrCourseNotFound) {
		return replyNotFound(c, "course not found")
	}
	if err != nil {
		return replyInternal(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// PlanFeed renders the daily plan as an RSS feed, one item per selected
// question, so learners can follow their plan from a feed reader.
func (s *APIV1Service) PlanFeed(c echo.Context) error {
	request, err := s.parsePlanRequest(c)
	if err != nil {
		return replyBadRequest(c, err.Error())
	}
	plan, err := s.Planner.BuildPlan(c.Request().Context(), request)
	if errors.Is(err, planner.ErrCourseNotFound) {
		return replyNotFound(c, "course not found")
	}
	if err != nil {
		return replyInternal(c, err)
	}

	now := time.Now().UTC()
	baseURL := s.Profile.InstanceURL
	feed := &feeds.Feed{
		Title:       fmt.Sprintf("Study plan for user %d", request.UserID),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/api/v1/users/%d/plan", baseURL, request.UserID)},
		Description: fmt.Sprintf("%d items, reason: %s", len(plan.Items), plan.Reason),
		Created:     now,
	}
	for i, item := range plan.Items {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s/%s/%d", item.CourseUID, item.QuestionUID, now.Unix()),
			Title:       fmt.Sprintf("%d. [%s] %s", i+1, item.Category, item.QuestionUID),
			Link:        &feeds.Link{Href: fmt.Sprintf("%s/questions/%s", baseURL, item.QuestionUID)},
			Description: item.WhySelected,
			Created:     now,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return replyInternal(c, err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
