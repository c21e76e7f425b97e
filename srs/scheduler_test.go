package srs

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, mutate func(*Params)) *Scheduler {
	t.Helper()
	params := DefaultParams()
	params.EnableFuzz = false
	if mutate != nil {
		mutate(&params)
	}
	scheduler, err := NewScheduler(params, WithRandSource(rand.NewSource(1)))
	require.NoError(t, err)
	return scheduler
}

func reviewCard(stability, difficulty float64, lastReview time.Time, dueIn time.Duration) Card {
	return Card{
		Due:           lastReview.Add(dueIn),
		LastReview:    &lastReview,
		Reps:          4,
		Stability:     stability,
		Difficulty:    difficulty,
		ElapsedDays:   0,
		ScheduledDays: dueIn.Hours() / 24,
		State:         StateReview,
	}
}

func TestScheduleFirstRatingGood(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	card := NewCard(testNow)
	next, err := scheduler.Schedule(card, RatingGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, StateLearning, next.State)
	assert.Equal(t, 1, next.Reps)
	assert.Equal(t, 0, next.Lapses)
	require.NotNil(t, next.LastReview)
	assert.Equal(t, testNow, *next.LastReview)
	assert.True(t, next.Due.After(testNow))
	assert.Zero(t, next.ElapsedDays)
	assert.Equal(t, DefaultWeights[2], next.Stability, "good seeds stability from w[2]")

	// Good advances past the first learning step.
	assert.Equal(t, 1, next.LearningStep)
	assert.Equal(t, testNow.Add(10*time.Minute), next.Due)
}

func TestScheduleFirstRatingGoodShortCircuit(t *testing.T) {
	scheduler := newTestScheduler(t, func(p *Params) {
		p.GraduateGoodFirstRating = true
	})

	next, err := scheduler.Schedule(NewCard(testNow), RatingGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, StateReview, next.State)
	assert.Equal(t, 1, next.Reps)
	assert.True(t, next.ScheduledDays >= 1)
}

func TestScheduleFirstRatingEasyGraduatesImmediately(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	next, err := scheduler.Schedule(NewCard(testNow), RatingEasy, testNow)
	require.NoError(t, err)

	assert.Equal(t, StateReview, next.State)
	assert.Equal(t, DefaultWeights[3], next.Stability, "easy seeds stability from w[3]")
	assert.True(t, next.ScheduledDays >= 1)
	assert.True(t, float64(scheduler.Params().MaximumIntervalDays) >= next.ScheduledDays)
}

func TestScheduleLearningStepWalk(t *testing.T) {
	scheduler := newTestScheduler(t, func(p *Params) {
		p.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute, 24 * time.Hour}
	})

	// Again keeps the card at the first step.
	card, err := scheduler.Schedule(NewCard(testNow), RatingAgain, testNow)
	require.NoError(t, err)
	assert.Equal(t, StateLearning, card.State)
	assert.Equal(t, 0, card.LearningStep)
	assert.Equal(t, testNow.Add(time.Minute), card.Due)

	// Good twice climbs to the last step.
	at := testNow.Add(time.Minute)
	card, err = scheduler.Schedule(card, RatingGood, at)
	require.NoError(t, err)
	assert.Equal(t, 1, card.LearningStep)
	assert.Equal(t, at.Add(10*time.Minute), card.Due)

	at = at.Add(10 * time.Minute)
	card, err = scheduler.Schedule(card, RatingGood, at)
	require.NoError(t, err)
	assert.Equal(t, StateLearning, card.State)
	assert.Equal(t, 2, card.LearningStep)
	assert.Equal(t, at.Add(24*time.Hour), card.Due)

	// Again from a later step resets the sequence.
	at = at.Add(24 * time.Hour)
	card, err = scheduler.Schedule(card, RatingAgain, at)
	require.NoError(t, err)
	assert.Equal(t, StateLearning, card.State)
	assert.Equal(t, 0, card.LearningStep)
	assert.Equal(t, at.Add(time.Minute), card.Due)

	// Good from the final step graduates to Review.
	card.LearningStep = 2
	at = at.Add(time.Minute)
	card, err = scheduler.Schedule(card, RatingGood, at)
	require.NoError(t, err)
	assert.Equal(t, StateReview, card.State)
	assert.Equal(t, 0, card.LearningStep)
	assert.True(t, card.ScheduledDays >= 1)
}

func TestScheduleHardHoldsStep(t *testing.T) {
	scheduler := newTestScheduler(t, func(p *Params) {
		p.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute}
	})

	card, err := scheduler.Schedule(NewCard(testNow), RatingHard, testNow)
	require.NoError(t, err)
	assert.Equal(t, StateLearning, card.State)
	assert.Equal(t, 0, card.LearningStep)
	// Halfway between the first two steps.
	assert.Equal(t, testNow.Add(5*time.Minute+30*time.Second), card.Due)
}

func TestScheduleReviewAgainLapses(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	lastReview := testNow.AddDate(0, 0, -10)
	card := reviewCard(10, 5, lastReview, 10*24*time.Hour)

	next, err := scheduler.Schedule(card, RatingAgain, testNow)
	require.NoError(t, err)

	assert.Equal(t, StateRelearning, next.State)
	assert.Equal(t, card.Lapses+1, next.Lapses)
	assert.Less(t, next.Stability, 10.0)
	assert.Equal(t, testNow.Add(10*time.Minute), next.Due, "first relearning step")
	assert.InDelta(t, 10, next.ElapsedDays, 1e-9)
}

func TestScheduleReviewAgainWithoutRelearningSteps(t *testing.T) {
	scheduler := newTestScheduler(t, func(p *Params) {
		p.RelearningSteps = nil
	})

	lastReview := testNow.AddDate(0, 0, -10)
	next, err := scheduler.Schedule(reviewCard(10, 5, lastReview, 10*24*time.Hour), RatingAgain, testNow)
	require.NoError(t, err)

	assert.Equal(t, StateReview, next.State)
	assert.Equal(t, 1, next.Lapses)
	assert.True(t, next.ScheduledDays >= 1)
}

func TestScheduleReviewSuccessGrowsStability(t *testing.T) {
	scheduler := newTestScheduler(t, nil)
	lastReview := testNow.AddDate(0, 0, -10)

	for _, rating := range []Rating{RatingHard, RatingGood, RatingEasy} {
		next, err := scheduler.Schedule(reviewCard(10, 5, lastReview, 10*24*time.Hour), rating, testNow)
		require.NoError(t, err)
		assert.Equal(t, StateReview, next.State, rating.String())
		assert.Greater(t, next.Stability, 10.0, rating.String())
		assert.Equal(t, 0, next.Lapses, rating.String())
	}

	// Easy grows stability at least as much as Good, Good at least as
	// much as Hard.
	hard, _ := scheduler.Schedule(reviewCard(10, 5, lastReview, 10*24*time.Hour), RatingHard, testNow)
	good, _ := scheduler.Schedule(reviewCard(10, 5, lastReview, 10*24*time.Hour), RatingGood, testNow)
	easy, _ := scheduler.Schedule(reviewCard(10, 5, lastReview, 10*24*time.Hour), RatingEasy, testNow)
	assert.Greater(t, good.Stability, hard.Stability)
	assert.Greater(t, easy.Stability, good.Stability)
}

func TestScheduleRelearningGraduatesBackToReview(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	lastReview := testNow.Add(-10 * time.Minute)
	card := Card{
		Due:           testNow,
		LastReview:    &lastReview,
		Reps:          5,
		Lapses:        1,
		Stability:     2.5,
		Difficulty:    6,
		ScheduledDays: 10.0 / (24 * 60),
		State:         StateRelearning,
	}

	next, err := scheduler.Schedule(card, RatingGood, testNow)
	require.NoError(t, err)
	assert.Equal(t, StateReview, next.State, "good from the only relearning step graduates")
	assert.Equal(t, 1, next.Lapses)
}

func TestScheduleDeterministicWithFuzzOff(t *testing.T) {
	schedulerA := newTestScheduler(t, nil)
	schedulerB := newTestScheduler(t, nil)

	lastReview := testNow.AddDate(0, 0, -7)
	card := reviewCard(6.5, 4.2, lastReview, 7*24*time.Hour)

	for _, rating := range []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy} {
		first, err := schedulerA.Schedule(card, rating, testNow)
		require.NoError(t, err)
		second, err := schedulerB.Schedule(card, rating, testNow)
		require.NoError(t, err)
		assert.Equal(t, first, second, rating.String())
	}
}

func TestScheduleNeverReturnsNew(t *testing.T) {
	scheduler := newTestScheduler(t, nil)
	lastReview := testNow.AddDate(0, 0, -3)

	cards := []Card{
		NewCard(testNow),
		{Due: testNow, LastReview: &lastReview, Reps: 1, Stability: 0.5, Difficulty: 5, State: StateLearning},
		{Due: testNow, LastReview: &lastReview, Reps: 3, Stability: 8, Difficulty: 5, State: StateReview},
		{Due: testNow, LastReview: &lastReview, Reps: 4, Lapses: 1, Stability: 2, Difficulty: 6, State: StateRelearning},
	}
	for _, card := range cards {
		for _, rating := range []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy} {
			next, err := scheduler.Schedule(card, rating, testNow)
			require.NoError(t, err)
			assert.NotEqual(t, StateNew, next.State)
			assert.Equal(t, card.Reps+1, next.Reps)
		}
	}
}

func TestScheduleIntervalCap(t *testing.T) {
	scheduler := newTestScheduler(t, func(p *Params) {
		p.MaximumIntervalDays = 30
	})

	lastReview := testNow.AddDate(0, 0, -200)
	card := reviewCard(400, 3, lastReview, 200*24*time.Hour)

	next, err := scheduler.Schedule(card, RatingEasy, testNow)
	require.NoError(t, err)
	assert.Equal(t, 30.0, next.ScheduledDays)
	assert.Equal(t, testNow.AddDate(0, 0, 30), next.Due)
}

func TestScheduleFuzzStaysBounded(t *testing.T) {
	params := DefaultParams()
	params.EnableFuzz = true
	scheduler, err := NewScheduler(params, WithRandSource(rand.NewSource(7)))
	require.NoError(t, err)

	noFuzz := newTestScheduler(t, nil)
	lastReview := testNow.AddDate(0, 0, -20)
	card := reviewCard(20, 4, lastReview, 20*24*time.Hour)

	base, err := noFuzz.Schedule(card, RatingGood, testNow)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		next, err := scheduler.Schedule(card, RatingGood, testNow)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.ScheduledDays, 2.0)
		assert.LessOrEqual(t, next.ScheduledDays, float64(params.MaximumIntervalDays))
		// 5% band plus the fixed slack the lower bands contribute.
		assert.InDelta(t, base.ScheduledDays, next.ScheduledDays, base.ScheduledDays*0.05+3)
		// Fuzz only moves the due date, never the memory state.
		assert.Equal(t, base.Stability, next.Stability)
		assert.Equal(t, base.Difficulty, next.Difficulty)
	}
}

func TestScheduleSameDayReview(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	lastReview := testNow.Add(-2 * time.Hour)
	card := reviewCard(5, 5, lastReview, 5*24*time.Hour)

	next, err := scheduler.Schedule(card, RatingGood, testNow)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, next.Stability, 5.0, "same-day good never shrinks stability")
	assert.InDelta(t, 2.0/24, next.ElapsedDays, 1e-9)
}

func TestScheduleRejectsInvalidInput(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	_, err := scheduler.Schedule(NewCard(testNow), Rating(0), testNow)
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = scheduler.Schedule(NewCard(testNow), Rating(9), testNow)
	assert.ErrorIs(t, err, ErrInvalidRating)

	bad := NewCard(testNow)
	bad.Stability = -1
	_, err = scheduler.Schedule(bad, RatingGood, testNow)
	assert.ErrorIs(t, err, ErrMalformedCard)

	bad = NewCard(testNow)
	bad.State = State(42)
	_, err = scheduler.Schedule(bad, RatingGood, testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestScheduleDoesNotMutateInput(t *testing.T) {
	scheduler := newTestScheduler(t, nil)

	card := NewCard(testNow)
	before := card
	_, err := scheduler.Schedule(card, RatingGood, testNow)
	require.NoError(t, err)
	assert.Equal(t, before, card)
}

func TestPreviewCoversAllRatings(t *testing.T) {
	params := DefaultParams()
	scheduler, err := NewScheduler(params)
	require.NoError(t, err)

	lastReview := testNow.AddDate(0, 0, -6)
	card := reviewCard(6, 5, lastReview, 6*24*time.Hour)

	first, err := scheduler.Preview(card, testNow)
	require.NoError(t, err)
	require.Len(t, first, 4)

	second, err := scheduler.Preview(card, testNow)
	require.NoError(t, err)
	assert.Equal(t, first, second, "preview suppresses fuzz")

	assert.Equal(t, StateRelearning, first[RatingAgain].State)
	assert.True(t, first[RatingEasy].Due.After(first[RatingGood].Due) ||
		first[RatingEasy].Due.Equal(first[RatingGood].Due))
}

func TestNewSchedulerRejectsBadParams(t *testing.T) {
	params := DefaultParams()
	params.TargetRetention = 1.5
	_, err := NewScheduler(params)
	assert.ErrorIs(t, err, ErrInvalidParams)

	params = DefaultParams()
	params.Weights[4] = 99
	_, err = NewScheduler(params)
	assert.ErrorIs(t, err, ErrInvalidParams)

	params = DefaultParams()
	params.LearningSteps = []time.Duration{-time.Minute}
	_, err = NewScheduler(params)
	assert.ErrorIs(t, err, ErrInvalidParams)

	params = DefaultParams()
	params.RiskSafeFloor = 0.4 // below warning floor
	_, err = NewScheduler(params)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
