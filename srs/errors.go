package srs

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	ErrInvalidRating = errors.New("srs: invalid rating")
	ErrInvalidState  = errors.New("srs: invalid card state")
	ErrMalformedCard = errors.New("srs: malformed card")
	ErrInvalidParams = errors.New("srs: params out of bounds")
)
