package store

import "context"

// Confidence values a learner can report on a correct answer. An empty
// string means no self-report was given.
const (
	ConfidenceGuessed = "guessed"
	ConfidenceUnsure  = "unsure"
	ConfidenceKnewIt  = "knew_it"
)

// Attempt is one answered question. Rows are append-only: the attempt log
// is the audit trail the card state was derived from.
type Attempt struct {
	ID          int32
	UserID      int32
	QuestionID  int32
	CreatedTs   int64
	IsCorrect   bool
	Confidence  string
	TimeSpentMs int32
}

// FindAttempt is the find condition for attempts.
type FindAttempt struct {
	ID         *int32
	UserID     *int32
	QuestionID *int32

	// CreatedAfter keeps attempts with created_ts >= CreatedAfter.
	CreatedAfter *int64

	Limit  *int
	Offset *int
}

// CreateAttempt appends an attempt row.
func (s *Store) CreateAttempt(ctx context.Context, create *Attempt) (*Attempt, error) {
	return s.driver.CreateAttempt(ctx, create)
}

// ListAttempts lists attempts with filter, newest first.
func (s *Store) ListAttempts(ctx context.Context, find *FindAttempt) ([]*Attempt, error) {
	return s.driver.ListAttempts(ctx, find)
}

// CountAttempts counts attempts matching the filter.
func (s *Store) CountAttempts(ctx context.Context, find *FindAttempt) (int64, error) {
	return s.driver.CountAttempts(ctx, find)
}

// CountActiveUsers counts distinct users with at least one attempt since
// the given timestamp.
func (s *Store) CountActiveUsers(ctx context.Context, since int64) (int64, error) {
	return s.driver.CountActiveUsers(ctx, since)
}

// IsValidConfidence reports whether v is an accepted confidence report.
func IsValidConfidence(v string) bool {
	switch v {
	case "", ConfidenceGuessed, ConfidenceUnsure, ConfidenceKnewIt:
		return true
	}
	return false
}
