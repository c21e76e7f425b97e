package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studypace/studypace/srs"
	"github.com/studypace/studypace/store"
)

// mockStore is a hand-written in-memory Store for review service tests.
type mockStore struct {
	questions map[int32]*store.Question
	cards     map[int32]*store.Card
	attempts  []*store.Attempt

	nextCardID int32
	// conflictsRemaining makes UpdateCard fail with ErrConcurrentUpdate
	// that many times before succeeding.
	conflictsRemaining int
}

func newMockStore() *mockStore {
	return &mockStore{
		questions:  map[int32]*store.Question{},
		cards:      map[int32]*store.Card{},
		nextCardID: 1,
	}
}

func (m *mockStore) GetQuestion(_ context.Context, find *store.FindQuestion) (*store.Question, error) {
	q, ok := m.questions[*find.ID]
	if !ok {
		return nil, nil
	}
	if find.OnlyVisible && (!q.Published || !q.Approved) {
		return nil, nil
	}
	return q, nil
}

func (m *mockStore) GetCard(_ context.Context, find *store.FindCard) (*store.Card, error) {
	for _, c := range m.cards {
		if c.UserID == *find.UserID && c.QuestionID == *find.QuestionID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockStore) CreateCard(_ context.Context, create *store.Card) (*store.Card, error) {
	create.ID = m.nextCardID
	m.nextCardID++
	create.Version = 1
	create.CreatedTs = time.Now().Unix()
	create.UpdatedTs = create.CreatedTs
	copied := *create
	m.cards[create.ID] = &copied
	return create, nil
}

func (m *mockStore) UpdateCard(_ context.Context, update *store.UpdateCard) (*store.Card, error) {
	if m.conflictsRemaining > 0 {
		m.conflictsRemaining--
		return nil, store.ErrConcurrentUpdate
	}
	card, ok := m.cards[update.ID]
	if !ok || card.Version != update.ExpectedVersion {
		return nil, store.ErrConcurrentUpdate
	}
	if update.State != nil {
		card.State = *update.State
	}
	if update.DueTs != nil {
		card.DueTs = *update.DueTs
	}
	if update.LastReviewTs != nil {
		card.LastReviewTs = update.LastReviewTs
	}
	if update.Reps != nil {
		card.Reps = *update.Reps
	}
	if update.Lapses != nil {
		card.Lapses = *update.Lapses
	}
	if update.Stability != nil {
		card.Stability = *update.Stability
	}
	if update.Difficulty != nil {
		card.Difficulty = *update.Difficulty
	}
	if update.ElapsedDays != nil {
		card.ElapsedDays = *update.ElapsedDays
	}
	if update.ScheduledDays != nil {
		card.ScheduledDays = *update.ScheduledDays
	}
	if update.LearningStep != nil {
		card.LearningStep = *update.LearningStep
	}
	card.Version++
	copied := *card
	return &copied, nil
}

func (m *mockStore) ListCards(_ context.Context, find *store.FindCard) ([]*store.Card, error) {
	list := []*store.Card{}
	for _, c := range m.cards {
		if find.UserID != nil && c.UserID != *find.UserID {
			continue
		}
		if len(find.States) > 0 {
			matched := false
			for _, s := range find.States {
				if c.State == s {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		copied := *c
		list = append(list, &copied)
	}
	return list, nil
}

func (m *mockStore) CreateAttempt(_ context.Context, create *store.Attempt) (*store.Attempt, error) {
	create.ID = int32(len(m.attempts) + 1)
	create.CreatedTs = time.Now().Unix()
	m.attempts = append(m.attempts, create)
	return create, nil
}

func newTestService(t *testing.T, st Store) *Service {
	t.Helper()
	params := srs.DefaultParams()
	params.EnableFuzz = false
	scheduler, err := srs.NewScheduler(params)
	require.NoError(t, err)
	return NewService(st, scheduler)
}

func seedQuestion(m *mockStore, id int32) {
	m.questions[id] = &store.Question{ID: id, TopicID: 1, Published: true, Approved: true}
}

func TestDeriveRating(t *testing.T) {
	tests := []struct {
		name       string
		isCorrect  bool
		confidence string
		want       srs.Rating
	}{
		{"incorrect ignores confidence", false, store.ConfidenceKnewIt, srs.RatingAgain},
		{"incorrect no confidence", false, "", srs.RatingAgain},
		{"correct guessed", true, store.ConfidenceGuessed, srs.RatingHard},
		{"correct unsure", true, store.ConfidenceUnsure, srs.RatingGood},
		{"correct knew it", true, store.ConfidenceKnewIt, srs.RatingEasy},
		{"correct no confidence defaults to good", true, "", srs.RatingGood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DeriveRating(tt.isCorrect, tt.confidence))
		})
	}
}

func TestRecordAttemptFirstTime(t *testing.T) {
	m := newMockStore()
	seedQuestion(m, 10)
	s := newTestService(t, m)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	card, err := s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID:     1,
		QuestionID: 10,
		IsCorrect:  true,
		Confidence: store.ConfidenceUnsure,
	})
	require.NoError(t, err)
	require.Equal(t, srs.StateLearning.String(), card.State)
	require.Equal(t, int32(1), card.Reps)
	require.NotNil(t, card.LastReviewTs)
	require.Equal(t, now.Unix(), *card.LastReviewTs)
	require.Greater(t, card.DueTs, now.Unix())
	require.Len(t, m.attempts, 1)
	require.True(t, m.attempts[0].IsCorrect)
}

func TestRecordAttemptLapse(t *testing.T) {
	m := newMockStore()
	seedQuestion(m, 10)
	s := newTestService(t, m)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	lastReview := now.AddDate(0, 0, -12).Unix()
	m.cards[1] = &store.Card{
		ID: 1, UserID: 1, QuestionID: 10, Version: 3,
		State: srs.StateReview.String(), DueTs: now.AddDate(0, 0, -2).Unix(),
		LastReviewTs: &lastReview, Reps: 4, Lapses: 0,
		Stability: 10, Difficulty: 5, ScheduledDays: 10,
	}
	m.nextCardID = 2

	card, err := s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID:     1,
		QuestionID: 10,
		IsCorrect:  false,
	})
	require.NoError(t, err)
	require.Equal(t, srs.StateRelearning.String(), card.State)
	require.Equal(t, int32(1), card.Lapses)
	require.Less(t, card.Stability, 10.0)
}

func TestRecordAttemptQuestionNotFound(t *testing.T) {
	m := newMockStore()
	m.questions[10] = &store.Question{ID: 10, Published: true, Approved: false}
	s := newTestService(t, m)

	_, err := s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID: 1, QuestionID: 10, IsCorrect: true,
	})
	require.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID: 1, QuestionID: 99, IsCorrect: true,
	})
	require.ErrorIs(t, err, ErrQuestionNotFound)
	require.Empty(t, m.attempts)
}

func TestRecordAttemptInvalidConfidence(t *testing.T) {
	m := newMockStore()
	seedQuestion(m, 10)
	s := newTestService(t, m)

	_, err := s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID: 1, QuestionID: 10, IsCorrect: true, Confidence: "certain",
	})
	require.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestRecordAttemptRetriesConflict(t *testing.T) {
	m := newMockStore()
	seedQuestion(m, 10)
	m.conflictsRemaining = 1
	s := newTestService(t, m)

	card, err := s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID: 1, QuestionID: 10, IsCorrect: true,
	})
	require.NoError(t, err)
	require.Equal(t, int32(1), card.Reps)
	require.Len(t, m.attempts, 1)
}

func TestRecordAttemptSurfacesPersistentConflict(t *testing.T) {
	m := newMockStore()
	seedQuestion(m, 10)
	m.conflictsRemaining = maxConflictRetries + 2
	s := newTestService(t, m)

	_, err := s.RecordAttempt(context.Background(), &RecordAttemptRequest{
		UserID: 1, QuestionID: 10, IsCorrect: true,
	})
	require.ErrorIs(t, err, store.ErrConcurrentUpdate)
	// The rating was never applied, so no attempt row may exist either.
	require.Empty(t, m.attempts)
}

func TestRecalculateElapsed(t *testing.T) {
	m := newMockStore()
	s := newTestService(t, m)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	lastReview := now.AddDate(0, 0, -6).Unix()
	m.cards[1] = &store.Card{
		ID: 1, UserID: 1, QuestionID: 10, Version: 2,
		State: srs.StateReview.String(), DueTs: now.Unix(),
		LastReviewTs: &lastReview, Reps: 3, Stability: 8, Difficulty: 4,
	}
	m.cards[2] = &store.Card{
		ID: 2, UserID: 1, QuestionID: 11, Version: 1,
		State: srs.StateNew.String(), DueTs: now.Unix(),
	}

	updated, err := s.RecalculateElapsed(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, updated)
	require.InDelta(t, 6.0, m.cards[1].ElapsedDays, 0.01)

	// Idempotent: a second sweep recomputes the same value.
	updated, err = s.RecalculateElapsed(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, updated)
	require.InDelta(t, 6.0, m.cards[1].ElapsedDays, 0.01)
}
