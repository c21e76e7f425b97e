package srs

import (
	"encoding"
	"fmt"
)

// Rating is the review outcome for a single card presentation,
// ordered worst to best.
type Rating int

const (
	RatingAgain Rating = iota + 1 // failed to recall
	RatingHard                    // recalled with significant effort
	RatingGood                    // recalled correctly
	RatingEasy                    // recalled effortlessly
)

var ratingNames = map[Rating]string{
	RatingAgain: "AGAIN",
	RatingHard:  "HARD",
	RatingGood:  "GOOD",
	RatingEasy:  "EASY",
}

var ratingValues = map[string]Rating{
	"AGAIN": RatingAgain,
	"HARD":  RatingHard,
	"GOOD":  RatingGood,
	"EASY":  RatingEasy,
}

var (
	_ fmt.Stringer             = Rating(0)
	_ encoding.TextMarshaler   = Rating(0)
	_ encoding.TextUnmarshaler = (*Rating)(nil)
)

// IsValid reports whether r is one of the four defined ratings.
func (r Rating) IsValid() bool {
	return r >= RatingAgain && r <= RatingEasy
}

func (r Rating) String() string {
	if name, ok := ratingNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RATING(%d)", int(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r Rating) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	v, ok := ratingValues[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidRating, text)
	}
	*r = v
	return nil
}
