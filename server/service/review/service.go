// Package review ingests completed attempts: it derives a rating from the
// observed outcome, runs the card through the scheduler, and persists the
// result. This is the only write path for card memory state outside the
// elapsed-days maintenance sweep.
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

const (
	// maxConflictRetries bounds how often a racing card update is retried
	// with a fresh read before the conflict is surfaced to the caller.
	maxConflictRetries = 3

	// recalcParallelism bounds concurrent card updates during the
	// elapsed-days maintenance sweep.
	recalcParallelism = 4
)

// Service-specific errors that can be checked with errors.Is.
var (
	// ErrQuestionNotFound is returned when an attempt references a
	// question that does not exist or is not visible.
	ErrQuestionNotFound = fmt.Errorf("question not found")
	// ErrInvalidConfidence is returned for an unknown confidence report.
	ErrInvalidConfidence = fmt.Errorf("invalid confidence value")
)

// Store is the interface for store operations needed by the review service.
type Store interface {
	GetQuestion(ctx context.Context, find *store.FindQuestion) (*store.Question, error)
	GetCard(ctx context.Context, find *store.FindCard) (*store.Card, error)
	CreateCard(ctx context.Context, create *store.Card) (*store.Card, error)
	UpdateCard(ctx context.Context, update *store.UpdateCard) (*store.Card, error)
	ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error)
	CreateAttempt(ctx context.Context, create *store.Attempt) (*store.Attempt, error)
}

// Service records attempts and maintains card state.
type Service struct {
	store     Store
	scheduler *srs.Scheduler

	now func() time.Time
}

// NewService creates the attempt ingestion service.
func NewService(st Store, scheduler *srs.Scheduler) *Service {
	return &Service{
		store:     st,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// RecordAttemptRequest is one answered question presentation.
type RecordAttemptRequest struct {
	UserID      int32
	QuestionID  int32
	IsCorrect   bool
	Confidence  string
	TimeSpentMs int32
}

// DeriveRating maps an observed outcome to a scheduler rating. An incorrect
// answer is always Again regardless of the reported confidence; a correct
// answer grades by confidence tier, with Good as the neutral default when
// no confidence was reported.
func DeriveRating(isCorrect bool, confidence string) srs.Rating {
	if !isCorrect {
		return srs.RatingAgain
	}
	switch confidence {
	case store.ConfidenceGuessed:
		return srs.RatingHard
	case store.ConfidenceKnewIt:
		return srs.RatingEasy
	default:
		return srs.RatingGood
	}
}

// RecordAttempt validates the attempt, applies the derived rating to the
// (lazily created) card, and appends the immutable attempt row. Racing
// updates to the same card are retried with a fresh read; after
// maxConflictRetries the conflict is surfaced, never silently dropped.
func (s *Service) RecordAttempt(ctx context.Context, request *RecordAttemptRequest) (*store.Card, error) {
	if !store.IsValidConfidence(request.Confidence) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConfidence, request.Confidence)
	}

	question, err := s.store.GetQuestion(ctx, &store.FindQuestion{
		ID:          &request.QuestionID,
		OnlyVisible: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question == nil {
		return nil, fmt.Errorf("%w: id %d", ErrQuestionNotFound, request.QuestionID)
	}

	rating := DeriveRating(request.IsCorrect, request.Confidence)
	now := s.now().UTC()

	var updated *store.Card
	for attempt := 0; ; attempt++ {
		card, err := s.loadOrCreateCard(ctx, request.UserID, request.QuestionID, now)
		if err != nil {
			return nil, err
		}

		srsCard, err := card.SRSCard()
		if err != nil {
			// A malformed row must fail loudly; swallowing it would
			// leave the card permanently due.
			return nil, fmt.Errorf("failed to map card %d: %w", card.ID, err)
		}
		next, err := s.scheduler.Schedule(srsCard, rating, now)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule card %d: %w", card.ID, err)
		}

		updated, err = s.store.UpdateCard(ctx, card.UpdateFromSRS(next))
		if err == nil {
			break
		}
		if err == store.ErrConcurrentUpdate && attempt < maxConflictRetries {
			slog.Debug("card update conflicted, retrying",
				slog.Int("cardID", int(card.ID)),
				slog.Int("attempt", attempt+1))
			continue
		}
		return nil, fmt.Errorf("failed to update card %d: %w", card.ID, err)
	}

	if _, err := s.store.CreateAttempt(ctx, &store.Attempt{
		UserID:      request.UserID,
		QuestionID:  request.QuestionID,
		IsCorrect:   request.IsCorrect,
		Confidence:  request.Confidence,
		TimeSpentMs: request.TimeSpentMs,
	}); err != nil {
		return nil, fmt.Errorf("failed to append attempt: %w", err)
	}

	return updated, nil
}

// loadOrCreateCard returns the card for (user, question), creating the NEW
// row on first attempt. A create that loses a race to a concurrent first
// attempt falls back to re-reading the winner's row.
func (s *Service) loadOrCreateCard(ctx context.Context, userID, questionID int32, now time.Time) (*store.Card, error) {
	card, err := s.store.GetCard(ctx, &store.FindCard{UserID: &userID, QuestionID: &questionID})
	if err != nil {
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	if card != nil {
		return card, nil
	}

	created, err := s.store.CreateCard(ctx, store.NewCardRow(userID, questionID, now))
	if err == nil {
		return created, nil
	}
	card, getErr := s.store.GetCard(ctx, &store.FindCard{UserID: &userID, QuestionID: &questionID})
	if getErr == nil && card != nil {
		return card, nil
	}
	return nil, fmt.Errorf("failed to create card: %w", err)
}

// RecalculateElapsed refreshes elapsed_days for every reviewed card of a
// user as of now. It makes no scheduling decisions and is idempotent; cards
// that race with a concurrent attempt are skipped since the attempt already
// wrote a fresher value.
func (s *Service) RecalculateElapsed(ctx context.Context, userID int32) (int, error) {
	cards, err := s.store.ListCards(ctx, &store.FindCard{
		UserID: &userID,
		States: []string{
			srs.StateLearning.String(),
			srs.StateReview.String(),
			srs.StateRelearning.String(),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list cards: %w", err)
	}

	now := s.now().UTC()
	sem := semaphore.NewWeighted(recalcParallelism)
	updatedCh := make(chan struct{}, len(cards))
	for _, card := range cards {
		if card.LastReviewTs == nil {
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			return 0, err
		}
		go func(card *store.Card) {
			defer sem.Release(1)
			elapsed := now.Sub(time.Unix(*card.LastReviewTs, 0)).Hours() / 24
			if elapsed < 0 {
				elapsed = 0
			}
			_, err := s.store.UpdateCard(ctx, &store.UpdateCard{
				ID:              card.ID,
				ExpectedVersion: card.Version,
				ElapsedDays:     &elapsed,
			})
			if err == store.ErrConcurrentUpdate {
				return
			}
			if err != nil {
				slog.Warn("failed to recalculate card",
					slog.Int("cardID", int(card.ID)),
					slog.String("error", err.Error()))
				return
			}
			updatedCh <- struct{}{}
		}(card)
	}
	if err := sem.Acquire(ctx, recalcParallelism); err != nil {
		return 0, err
	}
	close(updatedCh)

	updated := 0
	for range updatedCh {
		updated++
	}
	return updated, nil
}
