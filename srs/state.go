package srs

import (
	"encoding"
	"fmt"
)

// State is the lifecycle stage of a card.
type State int

const (
	StateNew        State = iota // never reviewed
	StateLearning                // inside the initial learning steps
	StateReview                  // graduated to long-term review
	StateRelearning              // forgotten, repeating the relearning steps
)

var stateNames = map[State]string{
	StateNew:        "NEW",
	StateLearning:   "LEARNING",
	StateReview:     "REVIEW",
	StateRelearning: "RELEARNING",
}

var stateValues = map[string]State{
	"NEW":        StateNew,
	"LEARNING":   StateLearning,
	"REVIEW":     StateReview,
	"RELEARNING": StateRelearning,
}

var (
	_ fmt.Stringer             = State(0)
	_ encoding.TextMarshaler   = State(0)
	_ encoding.TextUnmarshaler = (*State)(nil)
)

// IsValid reports whether s is a defined lifecycle stage.
func (s State) IsValid() bool {
	return s >= StateNew && s <= StateRelearning
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidState, int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, ok := stateValues[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidState, text)
	}
	*s = v
	return nil
}
