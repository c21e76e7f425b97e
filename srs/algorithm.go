package srs

import "math"

// FSRS-6 memory model. Stability S is the interval (in days) at which recall
// probability decays to 90%; difficulty D in [1, 10] scales how fast S grows.
// The forgetting curve and the update rules below follow the published
// algorithm; weight indices match the fitted parameter vector.

const (
	minStability  = 0.001
	maxStability  = 36500.0
	minDifficulty = 1.0
	maxDifficulty = 10.0
)

// curve holds the per-parameter-set constants of the power forgetting curve.
// decay is -w[20]; factor is chosen so that R(S, S) = 0.9 exactly.
type curve struct {
	decay  float64
	factor float64
}

func newCurve(w [21]float64) curve {
	d := -w[20]
	return curve{
		decay:  d,
		factor: math.Pow(0.9, 1/d) - 1,
	}
}

// retrievability is the probability of recall after elapsedDays given
// stability. elapsedDays below zero is treated as zero.
func (c curve) retrievability(elapsedDays, stability float64) float64 {
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	if stability < minStability {
		stability = minStability
	}
	return math.Pow(1+c.factor*elapsedDays/stability, c.decay)
}

// interval inverts the curve: the number of days until retrievability drops
// to the requested retention. Result is clamped to [1, maxDays].
func (c curve) interval(stability, requestRetention float64, maxDays int) float64 {
	raw := stability / c.factor * (math.Pow(requestRetention, 1/c.decay) - 1)
	days := math.Round(raw)
	if days < 1 {
		days = 1
	}
	if m := float64(maxDays); days > m {
		days = m
	}
	return days
}

func clampStability(s float64) float64 {
	return math.Min(math.Max(s, minStability), maxStability)
}

func clampDifficulty(d float64) float64 {
	return math.Min(math.Max(d, minDifficulty), maxDifficulty)
}

// initialStability seeds S from the first rating: w[0]..w[3] for
// Again..Easy.
func initialStability(w [21]float64, r Rating) float64 {
	return clampStability(w[r-1])
}

// initialDifficulty seeds D from the first rating.
func initialDifficulty(w [21]float64, r Rating) float64 {
	return clampDifficulty(w[4] - math.Exp(w[5]*float64(r-1)) + 1)
}

// nextDifficulty applies the linearly damped delta and then reverts toward
// the difficulty a brand-new Easy card would get, by mix factor w[7].
func nextDifficulty(w [21]float64, d float64, r Rating) float64 {
	deltaD := -w[6] * float64(r-3)
	damped := d + deltaD*(10-d)/9
	reverted := w[7]*initialDifficulty(w, RatingEasy) + (1-w[7])*damped
	return clampDifficulty(reverted)
}

// nextRecallStability grows S after a successful review. Growth shrinks as D
// rises, as S itself rises, and as the review happens earlier (higher r).
func nextRecallStability(w [21]float64, d, s, r float64, rating Rating) float64 {
	hardPenalty := 1.0
	if rating == RatingHard {
		hardPenalty = w[15]
	}
	easyBonus := 1.0
	if rating == RatingEasy {
		easyBonus = w[16]
	}
	grown := s * (1 +
		math.Exp(w[8])*
			(11-d)*
			math.Pow(s, -w[9])*
			(math.Exp((1-r)*w[10])-1)*
			hardPenalty*
			easyBonus)
	return clampStability(grown)
}

// nextForgetStability shrinks S after a lapse. The result never exceeds the
// post-lapse short-term ceiling s / e^(w17*w18).
func nextForgetStability(w [21]float64, d, s, r float64) float64 {
	shrunk := w[11] *
		math.Pow(d, -w[12]) *
		(math.Pow(s+1, w[13]) - 1) *
		math.Exp((1-r)*w[14])
	ceiling := s / math.Exp(w[17]*w[18])
	return clampStability(math.Min(shrunk, ceiling))
}

// shortTermStability adjusts S for a same-day (sub-day) repetition, where
// the full forgetting curve does not apply. For Good and Easy the multiplier
// never shrinks S.
func shortTermStability(w [21]float64, s float64, r Rating) float64 {
	sinc := math.Exp(w[17]*(float64(r-3)+w[18])) * math.Pow(s, -w[19])
	if r >= RatingGood && sinc < 1 {
		sinc = 1
	}
	return clampStability(s * sinc)
}
