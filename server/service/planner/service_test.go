package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// mockStore is a hand-written in-memory Store for planner tests.
type mockStore struct {
	courses     map[int32]*store.Course
	topics      map[int32]*store.Topic
	questions   map[int32]*store.Question
	enrollments []*store.Enrollment
	cards       map[int32]*store.Card
}

func newMockStore() *mockStore {
	return &mockStore{
		courses:   map[int32]*store.Course{},
		topics:    map[int32]*store.Topic{},
		questions: map[int32]*store.Question{},
		cards:     map[int32]*store.Card{},
	}
}

func (m *mockStore) GetCourse(_ context.Context, find *store.FindCourse) (*store.Course, error) {
	for _, c := range m.courses {
		if find.ID != nil && c.ID != *find.ID {
			continue
		}
		if find.UID != nil && c.UID != *find.UID {
			continue
		}
		return c, nil
	}
	return nil, nil
}

func (m *mockStore) ListEnrollments(_ context.Context, find *store.FindEnrollment) ([]*store.Enrollment, error) {
	list := []*store.Enrollment{}
	for _, e := range m.enrollments {
		if find.UserID != nil && e.UserID != *find.UserID {
			continue
		}
		list = append(list, e)
	}
	return list, nil
}

func (m *mockStore) ListTopics(_ context.Context, find *store.FindTopic) ([]*store.Topic, error) {
	list := []*store.Topic{}
	for _, topic := range m.topics {
		if find.CourseID != nil && topic.CourseID != *find.CourseID {
			continue
		}
		list = append(list, topic)
	}
	return list, nil
}

func (m *mockStore) courseOfQuestion(q *store.Question) int32 {
	topic, ok := m.topics[q.TopicID]
	if !ok {
		return 0
	}
	return topic.CourseID
}

func (m *mockStore) ListQuestions(_ context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	// Syllabus order: coverage date, order index, question id.
	ordered := []*store.Question{}
	for _, q := range m.questions {
		if find.CourseID != nil && m.courseOfQuestion(q) != *find.CourseID {
			continue
		}
		if find.OnlyVisible && (!q.Published || !q.Approved) {
			continue
		}
		ordered = append(ordered, q)
	}
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			ti, tj := m.topics[ordered[i].TopicID], m.topics[ordered[j].TopicID]
			swap := false
			switch {
			case ti.CoveredTs != tj.CoveredTs:
				swap = ti.CoveredTs > tj.CoveredTs
			case ti.OrderIndex != tj.OrderIndex:
				swap = ti.OrderIndex > tj.OrderIndex
			default:
				swap = ordered[i].ID > ordered[j].ID
			}
			if swap {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	return ordered, nil
}

func (m *mockStore) ListCards(_ context.Context, find *store.FindCard) ([]*store.Card, error) {
	list := []*store.Card{}
	for _, c := range m.cards {
		if find.UserID != nil && c.UserID != *find.UserID {
			continue
		}
		if find.CourseID != nil {
			q, ok := m.questions[c.QuestionID]
			if !ok || m.courseOfQuestion(q) != *find.CourseID {
				continue
			}
		}
		list = append(list, c)
	}
	return list, nil
}

func testConfig() Config {
	return Config{
		CurrentShare:       0.5,
		BridgeShare:        0.3,
		StretchShare:       0.2,
		MaxPullForwardDays: 3,
		StretchWindowDays:  7,
		CurrentWindowDays:  7,
	}
}

var planNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(m *mockStore) *Service {
	s := NewService(m, testConfig())
	s.now = func() time.Time { return planNow }
	return s
}

// seedCourse adds a course with one topic covered at the given offset from
// planNow, and returns the topic ID.
func (m *mockStore) seedCourse(courseID int32, uid string, topicID int32, coveredDaysAgo int) {
	if _, ok := m.courses[courseID]; !ok {
		m.courses[courseID] = &store.Course{ID: courseID, UID: uid, Title: uid}
	}
	m.topics[topicID] = &store.Topic{
		ID: topicID, UID: uid + "-topic", CourseID: courseID,
		Title:     "Topic",
		CoveredTs: planNow.AddDate(0, 0, -coveredDaysAgo).Unix(),
	}
}

func (m *mockStore) seedQuestion(id, topicID int32, uid string) {
	m.questions[id] = &store.Question{
		ID: id, UID: uid, TopicID: topicID, Published: true, Approved: true,
	}
}

func (m *mockStore) seedDueCard(cardID, questionID int32, dueDaysAgo int) {
	m.cards[cardID] = &store.Card{
		ID: cardID, UserID: 1, QuestionID: questionID, Version: 1,
		State: srs.StateReview.String(),
		DueTs: planNow.AddDate(0, 0, -dueDaysAgo).Unix(),
		Reps:  5, Stability: 12, Difficulty: 5,
	}
}

func (m *mockStore) enroll(userID, courseID int32) {
	m.enrollments = append(m.enrollments, &store.Enrollment{
		ID: int32(len(m.enrollments) + 1), UserID: userID, CourseID: courseID,
	})
}

func TestBuildPlanOverdueOnly(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 30)
	m.enroll(1, 1)
	for i := int32(1); i <= 5; i++ {
		m.seedQuestion(i, 1, "q"+string(rune('0'+i)))
		m.seedDueCard(i, i, int(i)) // question i is i days overdue
	}
	s := newTestService(m)
	defer s.Close()

	plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1, Limit: 3})
	require.NoError(t, err)
	require.Equal(t, ReasonOK, plan.Reason)
	require.False(t, plan.IsBehind)
	require.Len(t, plan.Items, 3)
	// Most overdue first; no current/bridge/stretch items sneak in while
	// reviews remain unseated.
	require.Equal(t, int32(5), plan.Items[0].QuestionID)
	require.Equal(t, int32(4), plan.Items[1].QuestionID)
	require.Equal(t, int32(3), plan.Items[2].QuestionID)
	for _, item := range plan.Items {
		require.Equal(t, CategoryReview, item.Category)
		require.NotEmpty(t, item.WhySelected)
	}
}

func TestBuildPlanBehindSelectsBridge(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 20) // old topic, outside the current window
	m.seedCourse(1, "algebra", 2, 2)  // fresh topic
	m.enroll(1, 1)
	m.seedQuestion(1, 1, "old-q") // never attempted
	m.seedQuestion(2, 2, "new-q")
	s := newTestService(m)
	defer s.Close()

	plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{
		UserID: 1, Limit: 10, PaceOffsetDays: -5,
	})
	require.NoError(t, err)
	require.True(t, plan.IsBehind)
	categories := map[Category]int{}
	for _, item := range plan.Items {
		categories[item.Category]++
	}
	require.Equal(t, 1, categories[CategoryCurrent])
	require.Equal(t, 1, categories[CategoryBridge])
}

func TestBuildPlanOnPaceHasNoBridge(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 20)
	m.seedCourse(1, "algebra", 2, 2)
	m.enroll(1, 1)
	m.seedQuestion(1, 1, "old-q")
	m.seedQuestion(2, 2, "new-q")
	s := newTestService(m)
	defer s.Close()

	plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1, Limit: 10})
	require.NoError(t, err)
	require.False(t, plan.IsBehind)
	for _, item := range plan.Items {
		require.NotEqual(t, CategoryBridge, item.Category)
	}
}

func TestBuildPlanPullsReviewsForwardWhenBehind(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 30)
	m.enroll(1, 1)
	m.seedQuestion(1, 1, "q1")
	m.seedDueCard(1, 1, -2) // due two days in the future
	s := newTestService(m)
	defer s.Close()

	// On pace: the future review is not selected.
	plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, ReasonNothingDue, plan.Reason)

	// Behind: within the pull-forward window it is.
	plan, err = s.BuildPlan(context.Background(), &BuildPlanRequest{
		UserID: 1, Limit: 10, PaceOffsetDays: -5,
	})
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	require.Equal(t, CategoryReview, plan.Items[0].Category)
	require.Contains(t, plan.Items[0].WhySelected, "pulled forward")
}

func TestBuildPlanCourseBalance(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 30)
	m.seedCourse(2, "biology", 2, 30)
	m.enroll(1, 1)
	m.enroll(1, 2)
	// Algebra: 8 overdue cards. Biology: 2 overdue cards.
	for i := int32(1); i <= 8; i++ {
		m.seedQuestion(i, 1, "alg")
		m.seedDueCard(i, i, int(i))
	}
	for i := int32(9); i <= 10; i++ {
		m.seedQuestion(i, 2, "bio")
		m.seedDueCard(i, i, 1)
	}
	s := newTestService(m)
	defer s.Close()

	plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, plan.Items, 5)

	perCourse := map[string]int{}
	for _, item := range plan.Items {
		perCourse[item.CourseUID]++
	}
	// 8:2 over 5 slots → algebra 4, biology 1. The minority course is
	// represented, not starved.
	require.Equal(t, 4, perCourse["algebra"])
	require.Equal(t, 1, perCourse["biology"])
}

func TestBuildPlanCourseFilter(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 30)
	m.seedCourse(2, "biology", 2, 30)
	m.enroll(1, 1)
	m.enroll(1, 2)
	m.seedQuestion(1, 1, "alg")
	m.seedDueCard(1, 1, 1)
	m.seedQuestion(2, 2, "bio")
	m.seedDueCard(2, 2, 1)
	s := newTestService(m)
	defer s.Close()

	courseUID := "biology"
	plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{
		UserID: 1, CourseUID: &courseUID, Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, plan.Items, 1)
	require.Equal(t, "biology", plan.Items[0].CourseUID)

	unknown := "chemistry"
	_, err = s.BuildPlan(context.Background(), &BuildPlanRequest{
		UserID: 1, CourseUID: &unknown,
	})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestBuildPlanReasons(t *testing.T) {
	t.Run("no enrollments", func(t *testing.T) {
		s := newTestService(newMockStore())
		defer s.Close()
		plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1})
		require.NoError(t, err)
		require.Empty(t, plan.Items)
		require.Equal(t, ReasonNoEnrollments, plan.Reason)
	})

	t.Run("no published questions", func(t *testing.T) {
		m := newMockStore()
		m.seedCourse(1, "algebra", 1, 2)
		m.enroll(1, 1)
		m.questions[1] = &store.Question{ID: 1, UID: "draft", TopicID: 1, Published: false}
		s := newTestService(m)
		defer s.Close()
		plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1})
		require.NoError(t, err)
		require.Empty(t, plan.Items)
		require.Equal(t, ReasonNoPublishedQuestions, plan.Reason)
	})

	t.Run("nothing due", func(t *testing.T) {
		m := newMockStore()
		m.seedCourse(1, "algebra", 1, 20) // outside every window
		m.enroll(1, 1)
		m.seedQuestion(1, 1, "q1")
		m.seedDueCard(1, 1, -30) // due far in the future
		s := newTestService(m)
		defer s.Close()
		plan, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1})
		require.NoError(t, err)
		require.Empty(t, plan.Items)
		require.Equal(t, ReasonNothingDue, plan.Reason)
	})
}

func TestBuildPlanDeterministic(t *testing.T) {
	m := newMockStore()
	m.seedCourse(1, "algebra", 1, 30)
	m.seedCourse(1, "algebra", 2, 2)
	m.seedCourse(2, "biology", 3, 2)
	m.enroll(1, 2)
	m.enroll(1, 1)
	for i := int32(1); i <= 4; i++ {
		m.seedQuestion(i, 1, "alg")
		m.seedDueCard(i, i, int(i))
	}
	m.seedQuestion(5, 2, "alg-new")
	m.seedQuestion(6, 3, "bio-new")
	s := newTestService(m)
	defer s.Close()

	first, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1, Limit: 6})
	require.NoError(t, err)
	s.planCache.Clear(context.Background())
	second, err := s.BuildPlan(context.Background(), &BuildPlanRequest{UserID: 1, Limit: 6})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAllocateProportionally(t *testing.T) {
	require.Equal(t, []int{4, 1}, allocateProportionally(5, []int{8, 2}))
	require.Equal(t, []int{3, 0, 2}, allocateProportionally(5, []int{6, 0, 4}))
	// Representation guarantee: a bucket with candidates gets a slot.
	alloc := allocateProportionally(3, []int{100, 1})
	require.Equal(t, 3, alloc[0]+alloc[1])
	require.GreaterOrEqual(t, alloc[1], 1)
	// Never exceeds candidate count.
	require.Equal(t, []int{2, 3}, allocateProportionally(10, []int{2, 3}))
	require.Equal(t, []int{0, 0}, allocateProportionally(0, []int{5, 5}))
}
