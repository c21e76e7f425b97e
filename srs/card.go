package srs

import (
	"fmt"
	"time"
)

// Card is the per-(user, question) memory state. It is a plain value:
// Schedule never mutates its input and returns a fresh Card.
type Card struct {
	// Due is when the card next becomes reviewable.
	Due time.Time `json:"due"`
	// LastReview is nil until the first review.
	LastReview *time.Time `json:"lastReview,omitempty"`
	// Reps counts scheduling events applied to the card.
	Reps int `json:"reps"`
	// Lapses counts RatingAgain outcomes on Review-state cards.
	Lapses int `json:"lapses"`
	// Stability is the interval, in days, over which recall probability
	// decays to the target retention. Zero until the first review.
	Stability float64 `json:"stability"`
	// Difficulty is the intrinsic item difficulty in [1, 10].
	// Zero until the first review.
	Difficulty float64 `json:"difficulty"`
	// ElapsedDays is days between the last two reviews.
	ElapsedDays float64 `json:"elapsedDays"`
	// ScheduledDays is the interval scheduled at the last review.
	ScheduledDays float64 `json:"scheduledDays"`
	// LearningStep is the position within the learning/relearning step
	// sequence. Meaningless outside Learning/Relearning.
	LearningStep int `json:"learningStep"`
	State        State `json:"state"`
}

// NewCard returns a blank card that becomes reviewable immediately.
func NewCard(now time.Time) Card {
	return Card{State: StateNew, Due: now}
}

// Validate rejects cards whose persisted shape cannot be scheduled.
// It is the fail-fast boundary for rows loaded from storage: a card that
// passes Validate never causes Schedule to return a malformed result.
func (c Card) Validate() error {
	if !c.State.IsValid() {
		return fmt.Errorf("%w: state %d", ErrInvalidState, int(c.State))
	}
	if c.Stability < 0 {
		return fmt.Errorf("%w: negative stability %f", ErrMalformedCard, c.Stability)
	}
	if c.Difficulty < 0 {
		return fmt.Errorf("%w: negative difficulty %f", ErrMalformedCard, c.Difficulty)
	}
	if c.Reps < 0 || c.Lapses < 0 {
		return fmt.Errorf("%w: negative counters (reps=%d lapses=%d)", ErrMalformedCard, c.Reps, c.Lapses)
	}
	if c.ElapsedDays < 0 || c.ScheduledDays < 0 {
		return fmt.Errorf("%w: negative durations (elapsed=%f scheduled=%f)", ErrMalformedCard, c.ElapsedDays, c.ScheduledDays)
	}
	if c.State == StateNew {
		if c.Reps != 0 || c.LastReview != nil {
			return fmt.Errorf("%w: NEW card with review history", ErrMalformedCard)
		}
		return nil
	}
	if c.LastReview == nil {
		return fmt.Errorf("%w: %s card without last review", ErrMalformedCard, c.State)
	}
	if c.Due.Before(*c.LastReview) {
		return fmt.Errorf("%w: due %s before last review %s", ErrMalformedCard,
			c.Due.Format(time.RFC3339), c.LastReview.Format(time.RFC3339))
	}
	return nil
}

// Reviewed reports whether the card has been reviewed at least once.
func (c Card) Reviewed() bool {
	return c.LastReview != nil
}

// DaysSinceReview returns days elapsed from the last review to now,
// clamped at zero. Returns 0 for never-reviewed cards.
func (c Card) DaysSinceReview(now time.Time) float64 {
	if c.LastReview == nil {
		return 0
	}
	days := now.Sub(*c.LastReview).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}
