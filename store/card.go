package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/studypace/studypace/srs"
)

// Card is the per-(user, question) scheduling row. State and the memory
// fields are raw persisted values; SRSCard is the one place they become a
// typed srs.Card.
type Card struct {
	ID        int32
	UserID    int32
	QuestionID int32
	CreatedTs int64
	UpdatedTs int64

	// Version counts successful writes. Updates must carry the version
	// they read; a mismatch means a concurrent writer won.
	Version int32

	State         string
	DueTs         int64
	LastReviewTs  *int64
	Reps          int32
	Lapses        int32
	Stability     float64
	Difficulty    float64
	ElapsedDays   float64
	ScheduledDays float64
	LearningStep  int32
}

// FindCard is the find condition for cards.
type FindCard struct {
	ID          *int32
	UserID      *int32
	QuestionID  *int32
	QuestionIDs []int32

	// States filters by raw state names.
	States []string
	// DueBefore keeps cards with due_ts <= DueBefore.
	DueBefore *int64
	// CourseID joins through question and topic.
	CourseID *int32
	// MaxReps keeps cards with reps <= MaxReps.
	MaxReps *int32

	Limit  *int
	Offset *int
}

// UpdateCard is the update request for a card. ExpectedVersion is the
// version the caller read; the driver refuses the write when it no longer
// matches and the caller retries with a fresh read.
type UpdateCard struct {
	ID              int32
	ExpectedVersion int32

	State         *string
	DueTs         *int64
	LastReviewTs  *int64
	Reps          *int32
	Lapses        *int32
	Stability     *float64
	Difficulty    *float64
	ElapsedDays   *float64
	ScheduledDays *float64
	LearningStep  *int32
}

// DeleteCard is the delete request for a card.
type DeleteCard struct {
	ID int32
}

// CreateCard creates a new card row.
func (s *Store) CreateCard(ctx context.Context, create *Card) (*Card, error) {
	return s.driver.CreateCard(ctx, create)
}

// ListCards lists cards with filter, ordered by due time ascending (most
// overdue first).
func (s *Store) ListCards(ctx context.Context, find *FindCard) ([]*Card, error) {
	return s.driver.ListCards(ctx, find)
}

// GetCard gets a single card by filter.
func (s *Store) GetCard(ctx context.Context, find *FindCard) (*Card, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListCards(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateCard updates a card under optimistic concurrency. Returns
// ErrConcurrentUpdate when the expected version no longer matches.
func (s *Store) UpdateCard(ctx context.Context, update *UpdateCard) (*Card, error) {
	return s.driver.UpdateCard(ctx, update)
}

// DeleteCard deletes a card.
func (s *Store) DeleteCard(ctx context.Context, delete *DeleteCard) error {
	return s.driver.DeleteCard(ctx, delete)
}

// CountCards counts cards matching the filter.
func (s *Store) CountCards(ctx context.Context, find *FindCard) (int64, error) {
	return s.driver.CountCards(ctx, find)
}

// NewCardRow returns the row shape of a card that was never reviewed,
// due immediately.
func NewCardRow(userID, questionID int32, now time.Time) *Card {
	return &Card{
		UserID:     userID,
		QuestionID: questionID,
		State:      srs.StateNew.String(),
		DueTs:      now.Unix(),
	}
}

// SRSCard maps the persisted row to the typed domain card. The mapping is
// total over well-formed rows: the stability floor is clamped for reviewed
// cards, while unknown states and negative durations are rejected so a
// corrupt row cannot reach the scheduler.
func (c *Card) SRSCard() (srs.Card, error) {
	var state srs.State
	if err := state.UnmarshalText([]byte(c.State)); err != nil {
		return srs.Card{}, errors.Wrapf(err, "card %d", c.ID)
	}

	card := srs.Card{
		Due:           time.Unix(c.DueTs, 0).UTC(),
		Reps:          int(c.Reps),
		Lapses:        int(c.Lapses),
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   c.ElapsedDays,
		ScheduledDays: c.ScheduledDays,
		LearningStep:  int(c.LearningStep),
		State:         state,
	}
	if c.LastReviewTs != nil {
		lastReview := time.Unix(*c.LastReviewTs, 0).UTC()
		card.LastReview = &lastReview

		// Reviewed rows written by older builds can carry a zero
		// stability; clamp instead of failing the whole read path.
		if card.Stability <= 0 {
			card.Stability = 0.001
		}
		if card.Difficulty < 1 {
			card.Difficulty = 1
		}
	}
	if err := card.Validate(); err != nil {
		return srs.Card{}, errors.Wrapf(err, "card %d", c.ID)
	}
	return card, nil
}

// ApplySRS writes the domain card back onto the row fields.
func (c *Card) ApplySRS(card srs.Card) {
	c.State = card.State.String()
	c.DueTs = card.Due.Unix()
	if card.LastReview != nil {
		ts := card.LastReview.Unix()
		c.LastReviewTs = &ts
	} else {
		c.LastReviewTs = nil
	}
	c.Reps = int32(card.Reps)
	c.Lapses = int32(card.Lapses)
	c.Stability = card.Stability
	c.Difficulty = card.Difficulty
	c.ElapsedDays = card.ElapsedDays
	c.ScheduledDays = card.ScheduledDays
	c.LearningStep = int32(card.LearningStep)
}

// UpdateFromSRS builds the full-field update for a scheduled card.
func (c *Card) UpdateFromSRS(card srs.Card) *UpdateCard {
	row := Card{}
	row.ApplySRS(card)
	return &UpdateCard{
		ID:              c.ID,
		ExpectedVersion: c.Version,
		State:           &row.State,
		DueTs:           &row.DueTs,
		LastReviewTs:    row.LastReviewTs,
		Reps:            &row.Reps,
		Lapses:          &row.Lapses,
		Stability:       &row.Stability,
		Difficulty:      &row.Difficulty,
		ElapsedDays:     &row.ElapsedDays,
		ScheduledDays:   &row.ScheduledDays,
		LearningStep:    &row.LearningStep,
	}
}
