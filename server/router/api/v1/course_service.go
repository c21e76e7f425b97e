package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/studypace/studypace/store"
)

// topicResponse is one syllabus entry.
type topicResponse struct {
	UID        string `json:"uid"`
	Title      string `json:"title"`
	OrderIndex int32  `json:"orderIndex"`
	CoveredTs  int64  `json:"coveredTs"`
}

// scheduleResponse is a course's syllabus in coverage order.
type scheduleResponse struct {
	CourseUID string           `json:"courseUid"`
	Title     string           `json:"title"`
	ExamTs    *int64           `json:"examTs,omitempty"`
	Topics    []*topicResponse `json:"topics"`
}

// ListTopicSchedule returns the course's topics ordered by coverage date,
// then order index.
func (s *APIV1Service) ListTopicSchedule(c echo.Context) error {
	ctx := c.Request().Context()
	courseUID := c.Param("course")
	course, err := s.Store.GetCourse(ctx, &store.FindCourse{UID: &courseUID})
	if err != nil {
		return replyInternal(c, err)
	}
	if course == nil {
		return replyNotFound(c, "course not found")
	}

	topics, err := s.Store.ListTopics(ctx, &store.FindTopic{CourseID: &course.ID})
	if err != nil {
		return replyInternal(c, err)
	}

	response := &scheduleResponse{
		CourseUID: course.UID,
		Title:     course.Title,
		ExamTs:    course.ExamTs,
		Topics:    make([]*topicResponse, 0, len(topics)),
	}
	for _, topic := range topics {
		response.Topics = append(response.Topics, &topicResponse{
			UID:        topic.UID,
			Title:      topic.Title,
			OrderIndex: topic.OrderIndex,
			CoveredTs:  topic.CoveredTs,
		})
	}
	return c.JSON(http.StatusOK, response)
}
