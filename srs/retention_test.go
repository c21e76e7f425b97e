package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProjector(t *testing.T) *Projector {
	t.Helper()
	projector, err := NewProjector(DefaultParams())
	require.NoError(t, err)
	return projector
}

func TestRetrievabilityAtImpliedInterval(t *testing.T) {
	projector := newTestProjector(t)

	// The curve is normalized so that recall after exactly `stability`
	// days equals 90%.
	for _, stability := range []float64{0.5, 1, 3, 10, 42, 365} {
		r := projector.Retrievability(stability, stability)
		assert.InDelta(t, 0.9, r, 1e-9, "stability %f", stability)
	}
}

func TestRetrievabilityBounds(t *testing.T) {
	projector := newTestProjector(t)

	assert.Equal(t, 1.0, projector.Retrievability(10, 0))
	assert.Equal(t, 1.0, projector.Retrievability(10, -5), "negative elapsed clamps to zero")

	r := projector.Retrievability(0.001, 36500)
	assert.GreaterOrEqual(t, r, 0.0)
	assert.Less(t, r, 0.01)
}

func TestProjectRetentionMatchesRetrievabilityAtZeroHorizon(t *testing.T) {
	projector := newTestProjector(t)

	for _, stability := range []float64{0.1, 1, 5, 20, 100} {
		for _, elapsed := range []float64{0, 0.5, 1, 7, 30, 400} {
			direct := projector.Retrievability(stability, elapsed)
			projected := projector.ProjectRetention(stability, elapsed, 0)
			assert.Equal(t, direct, projected, "s=%f e=%f", stability, elapsed)
		}
	}
}

func TestProjectRetentionShiftsTheHorizon(t *testing.T) {
	projector := newTestProjector(t)

	assert.Equal(t,
		projector.Retrievability(10, 17),
		projector.ProjectRetention(10, 3, 14))
	assert.Equal(t,
		projector.ProjectRetention(10, 3, 0),
		projector.ProjectRetention(10, 3, -2),
		"negative horizon clamps to zero")
}

func TestRetrievabilityMonotonicity(t *testing.T) {
	projector := newTestProjector(t)

	// Fixed stability: strictly decreasing in elapsed days.
	previous := 1.1
	for _, elapsed := range []float64{0, 0.25, 1, 2, 5, 10, 30, 90, 365} {
		r := projector.Retrievability(8, elapsed)
		assert.Less(t, r, previous, "elapsed %f", elapsed)
		previous = r
	}

	// Fixed elapsed: strictly increasing in stability.
	previous = -0.1
	for _, stability := range []float64{0.5, 1, 2, 4, 8, 16, 64, 512} {
		r := projector.Retrievability(stability, 10)
		assert.Greater(t, r, previous, "stability %f", stability)
		previous = r
	}
}

func TestCardRetention(t *testing.T) {
	projector := newTestProjector(t)
	now := time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

	assert.Zero(t, projector.CardRetention(NewCard(now), now), "unreviewed card has no trace")

	lastReview := now.AddDate(0, 0, -4)
	card := Card{
		Due:        now,
		LastReview: &lastReview,
		Reps:       2,
		Stability:  4,
		Difficulty: 5,
		State:      StateReview,
	}
	assert.InDelta(t, 0.9, projector.CardRetention(card, now), 1e-9)
	assert.Equal(t, 1.0, projector.CardRetention(card, lastReview), "projection at the review instant")
}

func TestClassifyRisk(t *testing.T) {
	projector := newTestProjector(t)

	assert.Equal(t, RiskSafe, projector.ClassifyRisk(0.95))
	assert.Equal(t, RiskWarning, projector.ClassifyRisk(0.6))
	assert.Equal(t, RiskDanger, projector.ClassifyRisk(0.2))

	// Thresholds are inclusive on the high side.
	assert.Equal(t, RiskSafe, projector.ClassifyRisk(0.8))
	assert.Equal(t, RiskWarning, projector.ClassifyRisk(0.5))
	assert.Equal(t, RiskDanger, projector.ClassifyRisk(0.499))
}

func TestClassifyRiskCustomThresholds(t *testing.T) {
	params := DefaultParams()
	params.RiskSafeFloor = 0.9
	params.RiskWarnFloor = 0.7
	projector, err := NewProjector(params)
	require.NoError(t, err)

	assert.Equal(t, RiskWarning, projector.ClassifyRisk(0.85))
	assert.Equal(t, RiskDanger, projector.ClassifyRisk(0.65))
}
