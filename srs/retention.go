package srs

import "time"

// Projector answers recall-probability questions without touching card
// state. It shares the forgetting curve with the Scheduler so "is this due"
// and "will this be remembered on exam day" agree by construction.
type Projector struct {
	params Params
	curve  curve
}

// NewProjector validates params and returns a projector.
func NewProjector(params Params) (*Projector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Projector{params: params, curve: newCurve(params.Weights)}, nil
}

// Retrievability is the probability of recall after elapsedDays for a card
// of the given stability. Decreasing in elapsed time, increasing in
// stability, and exactly the target retention when elapsedDays equals the
// stability-implied interval.
func (p *Projector) Retrievability(stability, elapsedDays float64) float64 {
	return p.curve.retrievability(elapsedDays, stability)
}

// ProjectRetention evaluates the same curve horizonDays further out. A zero
// horizon matches Retrievability exactly.
func (p *Projector) ProjectRetention(stability, elapsedDays, horizonDays float64) float64 {
	if horizonDays < 0 {
		horizonDays = 0
	}
	return p.curve.retrievability(elapsedDays+horizonDays, stability)
}

// CardRetention projects a stored card's recall probability at the given
// time. Cards that were never reviewed have no memory trace yet and project
// to zero.
func (p *Projector) CardRetention(card Card, at time.Time) float64 {
	if !card.Reviewed() || card.LastReview == nil {
		return 0
	}
	return p.Retrievability(card.Stability, card.DaysSinceReview(at))
}

// ClassifyRisk buckets a retention value with the configured thresholds.
func (p *Projector) ClassifyRisk(r float64) Risk {
	switch {
	case r >= p.params.RiskSafeFloor:
		return RiskSafe
	case r >= p.params.RiskWarnFloor:
		return RiskWarning
	default:
		return RiskDanger
	}
}
