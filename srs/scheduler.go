package srs

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Scheduler turns (card, rating, time) into the next card state. It owns all
// writes to stability, difficulty and due; nothing else in the system may
// derive those fields. Safe for concurrent use.
type Scheduler struct {
	params Params
	curve  curve

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithRandSource replaces the fuzz randomness source, for reproducible
// tests.
func WithRandSource(src rand.Source) Option {
	return func(s *Scheduler) {
		s.rng = rand.New(src)
	}
}

// NewScheduler validates params and returns a ready scheduler.
func NewScheduler(params Params, opts ...Option) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{
		params: params,
		curve:  newCurve(params.Weights),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Params returns the configuration the scheduler was built with.
func (s *Scheduler) Params() Params {
	return s.params
}

// Schedule applies a rating to a card at the given time and returns the
// updated card. The input card is not modified. The returned card always has
// lastReview = now, elapsedDays = days since the previous review (0 for a
// new card), due = now + the scheduled interval, and a state other than New.
func (s *Scheduler) Schedule(card Card, rating Rating, now time.Time) (Card, error) {
	return s.apply(card, rating, now, true)
}

// Preview returns the card each rating would produce, with fuzz suppressed
// so repeated calls render the same intervals. Used for "Again 10m / Good
// 3d" style displays; nothing is persisted.
func (s *Scheduler) Preview(card Card, now time.Time) (map[Rating]Card, error) {
	out := make(map[Rating]Card, 4)
	for _, rating := range []Rating{RatingAgain, RatingHard, RatingGood, RatingEasy} {
		next, err := s.apply(card, rating, now, false)
		if err != nil {
			return nil, err
		}
		out[rating] = next
	}
	return out, nil
}

func (s *Scheduler) apply(card Card, rating Rating, now time.Time, allowFuzz bool) (Card, error) {
	if !rating.IsValid() {
		return Card{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}
	if err := card.Validate(); err != nil {
		return Card{}, err
	}
	now = now.UTC()

	var elapsed float64
	if card.LastReview != nil {
		elapsed = now.Sub(*card.LastReview).Hours() / 24
		if elapsed < 0 {
			elapsed = 0
		}
	}

	next := card
	next.Reps++
	next.ElapsedDays = elapsed

	var interval time.Duration
	switch card.State {
	case StateNew:
		next.Stability = initialStability(s.params.Weights, rating)
		next.Difficulty = initialDifficulty(s.params.Weights, rating)
		if rating == RatingEasy || (rating == RatingGood && s.params.GraduateGoodFirstRating) {
			next.State = StateReview
			next.LearningStep = 0
			interval = s.reviewInterval(&next, allowFuzz)
		} else {
			interval = s.walkSteps(&next, rating, s.params.LearningSteps, StateLearning, allowFuzz)
		}

	case StateLearning:
		s.updateMemory(&next, rating, elapsed)
		interval = s.walkSteps(&next, rating, s.params.LearningSteps, StateLearning, allowFuzz)

	case StateRelearning:
		s.updateMemory(&next, rating, elapsed)
		interval = s.walkSteps(&next, rating, s.params.RelearningSteps, StateRelearning, allowFuzz)

	case StateReview:
		s.updateMemory(&next, rating, elapsed)
		if rating == RatingAgain {
			next.Lapses++
			if len(s.params.RelearningSteps) == 0 {
				interval = s.reviewInterval(&next, allowFuzz)
			} else {
				next.State = StateRelearning
				next.LearningStep = 0
				interval = s.params.RelearningSteps[0]
			}
		} else {
			interval = s.reviewInterval(&next, allowFuzz)
		}
	}

	next.LastReview = &now
	next.ScheduledDays = float64(interval) / float64(24*time.Hour)
	next.Due = now.Add(interval)
	return next, nil
}

// updateMemory recomputes stability and difficulty for a card that has a
// review history. Same-day repetitions use the short-term formula; spaced
// repetitions use the full recall/forget curves evaluated at the card's
// retrievability.
func (s *Scheduler) updateMemory(c *Card, rating Rating, elapsed float64) {
	w := s.params.Weights
	if c.Stability < minStability {
		// Rows written before the first review can carry a zero
		// stability; treat them as freshly seeded.
		c.Stability = minStability
	}
	if elapsed < 1 {
		c.Stability = shortTermStability(w, c.Stability, rating)
	} else {
		r := s.curve.retrievability(elapsed, c.Stability)
		if rating == RatingAgain {
			c.Stability = nextForgetStability(w, c.Difficulty, c.Stability, r)
		} else {
			c.Stability = nextRecallStability(w, c.Difficulty, c.Stability, r, rating)
		}
	}
	c.Difficulty = nextDifficulty(w, c.Difficulty, rating)
}

// walkSteps advances a card through its learning (or relearning) step table
// and returns the interval until the next repetition. Graduation moves the
// card to Review and derives the interval from its stability.
func (s *Scheduler) walkSteps(c *Card, rating Rating, steps []time.Duration, state State, allowFuzz bool) time.Duration {
	c.State = state
	if interval, graduated := nextStepInterval(c, rating, steps); !graduated {
		return interval
	}
	c.State = StateReview
	c.LearningStep = 0
	return s.reviewInterval(c, allowFuzz)
}

// nextStepInterval implements one move through the step table. The second
// return is true when the card graduates: on Easy, on Good from the final
// step, or when the configured table is shorter than the card's position.
func nextStepInterval(c *Card, rating Rating, steps []time.Duration) (time.Duration, bool) {
	if len(steps) == 0 || (c.LearningStep >= len(steps) && rating >= RatingHard) {
		return 0, true
	}
	switch rating {
	case RatingAgain:
		c.LearningStep = 0
		return steps[0], false
	case RatingHard:
		// Hard holds the current step; at the first step it waits a
		// little longer than Again would, without advancing.
		if c.LearningStep == 0 {
			if len(steps) == 1 {
				return steps[0] + steps[0]/2, false
			}
			return (steps[0] + steps[1]) / 2, false
		}
		return steps[c.LearningStep], false
	case RatingGood:
		if c.LearningStep+1 >= len(steps) {
			return 0, true
		}
		c.LearningStep++
		return steps[c.LearningStep], false
	default: // RatingEasy
		return 0, true
	}
}

// reviewInterval converts stability into a due interval at the target
// retention, optionally fuzzed.
func (s *Scheduler) reviewInterval(c *Card, allowFuzz bool) time.Duration {
	days := s.curve.interval(c.Stability, s.params.TargetRetention, s.params.MaximumIntervalDays)
	if allowFuzz && s.params.EnableFuzz {
		s.mu.Lock()
		days = fuzzInterval(s.rng, days, s.params.MaximumIntervalDays)
		s.mu.Unlock()
	}
	return time.Duration(days * 24 * float64(time.Hour))
}
