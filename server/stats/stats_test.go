package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
	teststore "github.com/studypace/studypace/store/test"
)

func seedActivity(ctx context.Context, t *testing.T, ts *store.Store) {
	t.Helper()
	course, err := ts.CreateCourse(ctx, &store.Course{UID: "algebra", Title: "Algebra"})
	require.NoError(t, err)
	topic, err := ts.CreateTopic(ctx, &store.Topic{
		UID: "t1", CourseID: course.ID, Title: "Linear equations",
		CoveredTs: time.Now().Unix(),
	})
	require.NoError(t, err)
	q1, err := ts.CreateQuestion(ctx, &store.Question{
		UID: "q1", TopicID: topic.ID, Prompt: "Solve x+1=2", Published: true, Approved: true,
	})
	require.NoError(t, err)
	q2, err := ts.CreateQuestion(ctx, &store.Question{
		UID: "q2", TopicID: topic.ID, Prompt: "Solve 2x=4", Published: true, Approved: true,
	})
	require.NoError(t, err)

	now := time.Now()
	overdue := now.AddDate(0, 0, -1).Unix()
	_, err = ts.CreateCard(ctx, &store.Card{
		UserID: 1, QuestionID: q1.ID,
		State: srs.StateReview.String(), DueTs: overdue,
		Reps: 3, Stability: 5, Difficulty: 5,
	})
	require.NoError(t, err)
	_, err = ts.CreateCard(ctx, store.NewCardRow(1, q2.ID, now))
	require.NoError(t, err)

	_, err = ts.CreateAttempt(ctx, &store.Attempt{
		UserID: 1, QuestionID: q1.ID, IsCorrect: true, Confidence: store.ConfidenceKnewIt,
	})
	require.NoError(t, err)
	_, err = ts.CreateAttempt(ctx, &store.Attempt{
		UserID: 2, QuestionID: q1.ID, IsCorrect: false,
	})
	require.NoError(t, err)
}

func TestCollectorCollect(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	seedActivity(ctx, t, ts)

	collector := NewCollector(ts, time.Hour)
	collector.collect(ctx)

	stats := collector.GetStats()
	require.False(t, stats.LastUpdated.IsZero())
	require.Equal(t, int64(2), stats.TotalCards)
	require.Equal(t, int64(1), stats.NewCards)
	require.Equal(t, int64(1), stats.ReviewCards)
	// Both cards are due: one overdue review, one fresh NEW card.
	require.Equal(t, int64(2), stats.DueCards)
	require.Equal(t, int64(2), stats.TotalAttempts)
	require.Equal(t, int64(2), stats.AttemptsToday)
	require.Equal(t, int64(2), stats.AttemptsLastWeek)
	require.Equal(t, int64(2), stats.ActiveUsers)
}

func TestCollectorEmptyStore(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)

	collector := NewCollector(ts, time.Hour)
	collector.collect(ctx)

	stats := collector.GetStats()
	require.Zero(t, stats.TotalCards)
	require.Zero(t, stats.TotalAttempts)
	require.Zero(t, stats.ActiveUsers)
}

func TestCollectorStopsCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	// Close the store before the deferred leak check; the helper's
	// t.Cleanup close runs only after deferred functions, so the store's
	// own goroutines would otherwise still be running at VerifyNone time.
	defer func() {
		require.NoError(t, ts.Close())
	}()

	collector := NewCollector(ts, 10*time.Millisecond)
	collector.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	collector.Stop()
	// Stop is idempotent.
	collector.Stop()
	time.Sleep(20 * time.Millisecond)

	require.False(t, collector.GetStats().LastUpdated.IsZero())
}
