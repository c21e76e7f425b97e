// Package readiness answers "will I remember this on exam day": it projects
// every reviewed card's retention forward and buckets the result by risk.
// The whole package is a pure read over cards.
package readiness

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// ErrCourseNotFound is returned for an unknown course.
var ErrCourseNotFound = fmt.Errorf("course not found")

// Store is the interface for store operations needed by readiness reports.
type Store interface {
	GetCourse(ctx context.Context, find *store.FindCourse) (*store.Course, error)
	ListTopics(ctx context.Context, find *store.FindTopic) ([]*store.Topic, error)
	ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error)
	ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error)
}

// Service computes readiness reports.
type Service struct {
	store     Store
	projector *srs.Projector

	now func() time.Time
}

// NewService creates the readiness service.
func NewService(st Store, projector *srs.Projector) *Service {
	return &Service{
		store:     st,
		projector: projector,
		now:       time.Now,
	}
}

// QuestionReadiness is one card's projected state.
type QuestionReadiness struct {
	QuestionUID string   `json:"questionUid"`
	TopicUID    string   `json:"topicUid"`
	Retention   float64  `json:"retention"`
	Risk        srs.Risk `json:"risk"`
}

// TopicReadiness aggregates a topic's reviewed cards.
type TopicReadiness struct {
	TopicUID      string  `json:"topicUid"`
	Title         string  `json:"title"`
	Reviewed      int     `json:"reviewed"`
	Unseen        int     `json:"unseen"`
	MeanRetention float64 `json:"meanRetention"`
	AtRisk        int     `json:"atRisk"`
}

// Report is one course's readiness projection.
type Report struct {
	CourseUID string `json:"courseUid"`
	// HorizonDays is the projection distance actually used: the explicit
	// request value, else days until the exam, else zero (retention now).
	HorizonDays float64 `json:"horizonDays"`
	// ExamTs is echoed when the course has an exam date set.
	ExamTs *int64 `json:"examTs,omitempty"`

	Reviewed      int     `json:"reviewed"`
	Unseen        int     `json:"unseen"`
	MeanRetention float64 `json:"meanRetention"`
	// Risk buckets count reviewed cards only; unseen material is reported
	// separately since it has no memory trace to project.
	Safe    int `json:"safe"`
	Warning int `json:"warning"`
	Danger  int `json:"danger"`

	Topics    []TopicReadiness    `json:"topics"`
	Questions []QuestionReadiness `json:"questions"`
}

// CourseReadiness projects the user's retention for one course. When
// horizonDays is nil the projection runs to the course's exam date, or to
// now when no exam date is set. Only visible questions count; unseen ones
// are tallied but never bucketed.
func (s *Service) CourseReadiness(ctx context.Context, userID int32, courseUID string, horizonDays *float64) (*Report, error) {
	course, err := s.store.GetCourse(ctx, &store.FindCourse{UID: &courseUID})
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, courseUID)
	}

	now := s.now().UTC()
	horizon := 0.0
	switch {
	case horizonDays != nil:
		horizon = math.Max(0, *horizonDays)
	case course.ExamTs != nil:
		horizon = math.Max(0, time.Unix(*course.ExamTs, 0).Sub(now).Hours()/24)
	}

	topics, err := s.store.ListTopics(ctx, &store.FindTopic{CourseID: &course.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	questions, err := s.store.ListQuestions(ctx, &store.FindQuestion{
		CourseID:    &course.ID,
		OnlyVisible: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	cards, err := s.store.ListCards(ctx, &store.FindCard{UserID: &userID, CourseID: &course.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cardByQuestion := make(map[int32]*store.Card, len(cards))
	for _, card := range cards {
		cardByQuestion[card.QuestionID] = card
	}

	report := &Report{
		CourseUID:   course.UID,
		HorizonDays: horizon,
		ExamTs:      course.ExamTs,
		Topics:      []TopicReadiness{},
		Questions:   []QuestionReadiness{},
	}

	type topicAgg struct {
		reviewed, unseen, atRisk int
		retentionSum             float64
	}
	aggByTopic := map[int32]*topicAgg{}
	retentionSum := 0.0

	for _, question := range questions {
		agg := aggByTopic[question.TopicID]
		if agg == nil {
			agg = &topicAgg{}
			aggByTopic[question.TopicID] = agg
		}

		card := cardByQuestion[question.ID]
		if card == nil || card.LastReviewTs == nil {
			report.Unseen++
			agg.unseen++
			continue
		}
		srsCard, err := card.SRSCard()
		if err != nil {
			return nil, fmt.Errorf("failed to map card %d: %w", card.ID, err)
		}

		retention := s.projector.ProjectRetention(srsCard.Stability, srsCard.DaysSinceReview(now), horizon)
		risk := s.projector.ClassifyRisk(retention)

		report.Reviewed++
		retentionSum += retention
		agg.reviewed++
		agg.retentionSum += retention
		switch risk {
		case srs.RiskSafe:
			report.Safe++
		case srs.RiskWarning:
			report.Warning++
		default:
			report.Danger++
		}
		if risk != srs.RiskSafe {
			agg.atRisk++
		}

		topicUID := ""
		if topic := topicByID(topics, question.TopicID); topic != nil {
			topicUID = topic.UID
		}
		report.Questions = append(report.Questions, QuestionReadiness{
			QuestionUID: question.UID,
			TopicUID:    topicUID,
			Retention:   retention,
			Risk:        risk,
		})
	}

	if report.Reviewed > 0 {
		report.MeanRetention = retentionSum / float64(report.Reviewed)
	}

	// Topics come back in syllabus order; the report keeps that order.
	for _, topic := range topics {
		agg := aggByTopic[topic.ID]
		if agg == nil {
			continue
		}
		tr := TopicReadiness{
			TopicUID: topic.UID,
			Title:    topic.Title,
			Reviewed: agg.reviewed,
			Unseen:   agg.unseen,
			AtRisk:   agg.atRisk,
		}
		if agg.reviewed > 0 {
			tr.MeanRetention = agg.retentionSum / float64(agg.reviewed)
		}
		report.Topics = append(report.Topics, tr)
	}

	return report, nil
}

func topicByID(topics []*store.Topic, id int32) *store.Topic {
	for _, topic := range topics {
		if topic.ID == id {
			return topic
		}
	}
	return nil
}
