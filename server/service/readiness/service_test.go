package readiness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

type mockStore struct {
	course    *store.Course
	topics    []*store.Topic
	questions []*store.Question
	cards     []*store.Card
}

func (m *mockStore) GetCourse(_ context.Context, find *store.FindCourse) (*store.Course, error) {
	if m.course == nil {
		return nil, nil
	}
	if find.UID != nil && m.course.UID != *find.UID {
		return nil, nil
	}
	return m.course, nil
}

func (m *mockStore) ListTopics(_ context.Context, _ *store.FindTopic) ([]*store.Topic, error) {
	return m.topics, nil
}

func (m *mockStore) ListQuestions(_ context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	list := []*store.Question{}
	for _, q := range m.questions {
		if find.OnlyVisible && (!q.Published || !q.Approved) {
			continue
		}
		list = append(list, q)
	}
	return list, nil
}

func (m *mockStore) ListCards(_ context.Context, _ *store.FindCard) ([]*store.Card, error) {
	return m.cards, nil
}

var reportNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, m *mockStore) *Service {
	t.Helper()
	projector, err := srs.NewProjector(srs.DefaultParams())
	require.NoError(t, err)
	s := NewService(m, projector)
	s.now = func() time.Time { return reportNow }
	return s
}

// seed builds one course with two topics and three visible questions: one
// freshly reviewed strong card, one stale weak card, one never attempted.
func seed() *mockStore {
	examTs := reportNow.AddDate(0, 0, 14).Unix()
	m := &mockStore{
		course: &store.Course{ID: 1, UID: "algebra", Title: "Algebra", ExamTs: &examTs},
		topics: []*store.Topic{
			{ID: 1, UID: "t1", CourseID: 1, Title: "Linear equations"},
			{ID: 2, UID: "t2", CourseID: 1, Title: "Quadratics"},
		},
		questions: []*store.Question{
			{ID: 1, UID: "q1", TopicID: 1, Published: true, Approved: true},
			{ID: 2, UID: "q2", TopicID: 1, Published: true, Approved: true},
			{ID: 3, UID: "q3", TopicID: 2, Published: true, Approved: true},
		},
	}
	strong := reportNow.AddDate(0, 0, -1).Unix()
	weak := reportNow.AddDate(0, 0, -40).Unix()
	m.cards = []*store.Card{
		{
			ID: 1, UserID: 1, QuestionID: 1, Version: 1,
			State: srs.StateReview.String(), DueTs: reportNow.AddDate(0, 0, 60).Unix(),
			LastReviewTs: &strong, Reps: 8, Stability: 90, Difficulty: 4,
		},
		{
			ID: 2, UserID: 1, QuestionID: 2, Version: 1,
			State: srs.StateReview.String(), DueTs: reportNow.AddDate(0, 0, -35).Unix(),
			LastReviewTs: &weak, Reps: 2, Stability: 2, Difficulty: 7,
		},
	}
	return m
}

func TestCourseReadiness(t *testing.T) {
	m := seed()
	s := newTestService(t, m)

	report, err := s.CourseReadiness(context.Background(), 1, "algebra", nil)
	require.NoError(t, err)
	require.Equal(t, "algebra", report.CourseUID)
	require.InDelta(t, 14.0, report.HorizonDays, 0.01)
	require.Equal(t, 2, report.Reviewed)
	require.Equal(t, 1, report.Unseen)

	require.Len(t, report.Questions, 2)
	byUID := map[string]QuestionReadiness{}
	for _, q := range report.Questions {
		byUID[q.QuestionUID] = q
	}
	// Strong recent card stays safe two weeks out; the long-stale weak
	// card has decayed into danger.
	require.Equal(t, srs.RiskSafe, byUID["q1"].Risk)
	require.Equal(t, srs.RiskDanger, byUID["q2"].Risk)
	require.Greater(t, byUID["q1"].Retention, byUID["q2"].Retention)
	require.Equal(t, 1, report.Safe)
	require.Equal(t, 1, report.Danger)

	require.Len(t, report.Topics, 2)
	require.Equal(t, "t1", report.Topics[0].TopicUID)
	require.Equal(t, 2, report.Topics[0].Reviewed)
	require.Equal(t, 1, report.Topics[0].AtRisk)
	require.Equal(t, "t2", report.Topics[1].TopicUID)
	require.Equal(t, 1, report.Topics[1].Unseen)
	require.Zero(t, report.Topics[1].Reviewed)
}

func TestCourseReadinessExplicitHorizon(t *testing.T) {
	m := seed()
	s := newTestService(t, m)

	zero := 0.0
	nowReport, err := s.CourseReadiness(context.Background(), 1, "algebra", &zero)
	require.NoError(t, err)
	far := 120.0
	farReport, err := s.CourseReadiness(context.Background(), 1, "algebra", &far)
	require.NoError(t, err)

	// Retention only decays with horizon distance.
	require.Greater(t, nowReport.MeanRetention, farReport.MeanRetention)
	require.InDelta(t, 0.0, nowReport.HorizonDays, 0.001)
	require.InDelta(t, 120.0, farReport.HorizonDays, 0.001)
}

func TestCourseReadinessNoExamNoHorizon(t *testing.T) {
	m := seed()
	m.course.ExamTs = nil
	s := newTestService(t, m)

	report, err := s.CourseReadiness(context.Background(), 1, "algebra", nil)
	require.NoError(t, err)
	require.Zero(t, report.HorizonDays)
	require.Nil(t, report.ExamTs)
}

func TestCourseReadinessUnknownCourse(t *testing.T) {
	s := newTestService(t, &mockStore{})
	_, err := s.CourseReadiness(context.Background(), 1, "missing", nil)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseReadinessSkipsHiddenQuestions(t *testing.T) {
	m := seed()
	m.questions[2].Approved = false
	s := newTestService(t, m)

	report, err := s.CourseReadiness(context.Background(), 1, "algebra", nil)
	require.NoError(t, err)
	require.Zero(t, report.Unseen)
	require.Len(t, report.Topics, 1)
}
