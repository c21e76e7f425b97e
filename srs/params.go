package srs

import (
	"fmt"
	"time"
)

// DefaultWeights are the published FSRS-6 parameter values. Deployments can
// substitute per-population weights fitted offline; every value must stay
// inside [weightFloor, weightCeil].
var DefaultWeights = [21]float64{
	0.212, 1.2931, 2.3065, 8.2956, // initial stability per first rating
	6.4133, 0.8334, 3.0194, 0.001, // difficulty seed and reversion
	1.8722, 0.1666, 0.796, 1.4835, // recall stability growth
	0.0614, 0.2629, 1.6483, 0.6014, // forget stability penalty
	1.8729, 0.5425, 0.0912, 0.0658, // easy bonus / same-day review
	0.1542, // forgetting-curve decay exponent
}

var weightFloor = [21]float64{
	0.001, 0.001, 0.001, 0.001,
	1.0, 0.001, 0.001, 0.001,
	0.0, 0.0, 0.001, 0.001,
	0.001, 0.001, 0.0, 0.0,
	1.0, 0.0, 0.0, 0.0,
	0.1,
}

var weightCeil = [21]float64{
	100.0, 100.0, 100.0, 100.0,
	10.0, 4.0, 4.0, 0.75,
	4.5, 0.8, 3.5, 5.0,
	0.25, 0.9, 4.0, 1.0,
	6.0, 2.0, 2.0, 0.8,
	0.8,
}

// Risk buckets a projected retention value for downstream reporting.
type Risk string

const (
	RiskSafe    Risk = "SAFE"
	RiskWarning Risk = "WARNING"
	RiskDanger  Risk = "DANGER"
)

// Params is the complete, immutable configuration of the memory model.
// There is deliberately no process-wide default instance: callers construct
// Params once (normally from the server profile) and pass it down.
type Params struct {
	// Weights are the fitted FSRS-6 model weights.
	Weights [21]float64
	// TargetRetention is the recall probability the scheduler aims for at
	// the moment a card comes due.
	TargetRetention float64
	// MaximumIntervalDays caps any scheduled interval.
	MaximumIntervalDays int
	// LearningSteps are the short intervals a card walks through before
	// graduating from Learning to Review.
	LearningSteps []time.Duration
	// RelearningSteps are the intervals after a lapse.
	RelearningSteps []time.Duration
	// EnableFuzz randomizes day-scale intervals to spread review load
	// across users studying the same material on the same cadence.
	EnableFuzz bool
	// GraduateGoodFirstRating short-circuits the learning steps for a
	// brand-new card rated Good, sending it straight to Review the way an
	// Easy first rating always does.
	GraduateGoodFirstRating bool
	// RiskSafeFloor and RiskWarnFloor are the retention thresholds for
	// ClassifyRisk: r >= RiskSafeFloor is SAFE, r >= RiskWarnFloor is
	// WARNING, anything lower is DANGER.
	RiskSafeFloor float64
	RiskWarnFloor float64
}

// DefaultParams returns the tuning used when the profile does not override
// anything: 90% target retention, 365-day cap, minutes→day learning steps.
func DefaultParams() Params {
	return Params{
		Weights:             DefaultWeights,
		TargetRetention:     0.9,
		MaximumIntervalDays: 365,
		LearningSteps:       []time.Duration{time.Minute, 10 * time.Minute, 24 * time.Hour},
		RelearningSteps:     []time.Duration{10 * time.Minute},
		EnableFuzz:          true,
		RiskSafeFloor:       0.8,
		RiskWarnFloor:       0.5,
	}
}

// Validate checks weight bounds and scalar ranges.
func (p Params) Validate() error {
	for i, w := range p.Weights {
		if w < weightFloor[i] || w > weightCeil[i] {
			return fmt.Errorf("%w: w[%d]=%f outside [%f, %f]",
				ErrInvalidParams, i, w, weightFloor[i], weightCeil[i])
		}
	}
	if p.TargetRetention <= 0 || p.TargetRetention > 1 {
		return fmt.Errorf("%w: target retention %f outside (0, 1]", ErrInvalidParams, p.TargetRetention)
	}
	if p.MaximumIntervalDays < 1 {
		return fmt.Errorf("%w: maximum interval %d days", ErrInvalidParams, p.MaximumIntervalDays)
	}
	if p.RiskSafeFloor < p.RiskWarnFloor {
		return fmt.Errorf("%w: safe floor %f below warning floor %f",
			ErrInvalidParams, p.RiskSafeFloor, p.RiskWarnFloor)
	}
	for _, d := range p.LearningSteps {
		if d <= 0 {
			return fmt.Errorf("%w: non-positive learning step %s", ErrInvalidParams, d)
		}
	}
	for _, d := range p.RelearningSteps {
		if d <= 0 {
			return fmt.Errorf("%w: non-positive relearning step %s", ErrInvalidParams, d)
		}
	}
	return nil
}
