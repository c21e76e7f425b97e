package store

import "context"

// Question is a study item belonging to a topic. Published and Approved are
// moderation flags maintained by an external content pipeline; only rows
// with both set are visible to scheduling.
type Question struct {
	ID        int32
	UID       string
	TopicID   int32
	CreatedTs int64
	Prompt    string
	Published bool
	Approved  bool
}

// FindQuestion is the find condition for questions.
type FindQuestion struct {
	ID       *int32
	UID      *string
	TopicID  *int32
	TopicIDs []int32
	// CourseID joins through topic.
	CourseID *int32

	// OnlyVisible keeps published and approved questions.
	OnlyVisible bool
	// WithoutCardForUserID keeps questions the given user has no card
	// for (never-attempted material).
	WithoutCardForUserID *int32

	Limit  *int
	Offset *int
}

// UpdateQuestion is the update request for a question.
type UpdateQuestion struct {
	ID        int32
	Prompt    *string
	Published *bool
	Approved  *bool
}

// DeleteQuestion is the delete request for a question.
type DeleteQuestion struct {
	ID int32
}

// CreateQuestion creates a new question.
func (s *Store) CreateQuestion(ctx context.Context, create *Question) (*Question, error) {
	return s.driver.CreateQuestion(ctx, create)
}

// ListQuestions lists questions with filter, in topic order then id order.
func (s *Store) ListQuestions(ctx context.Context, find *FindQuestion) ([]*Question, error) {
	return s.driver.ListQuestions(ctx, find)
}

// GetQuestion gets a single question by filter, consulting the question
// cache for ID lookups.
func (s *Store) GetQuestion(ctx context.Context, find *FindQuestion) (*Question, error) {
	if find.ID != nil && !find.OnlyVisible {
		if v, ok := s.questionCache.Get(ctx, questionCacheKey(*find.ID)); ok {
			if question, ok := v.(*Question); ok {
				return question, nil
			}
		}
	}
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListQuestions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	question := list[0]
	if !find.OnlyVisible {
		s.questionCache.Set(ctx, questionCacheKey(question.ID), question)
	}
	return question, nil
}

// UpdateQuestion updates a question and invalidates its cache entry.
func (s *Store) UpdateQuestion(ctx context.Context, update *UpdateQuestion) (*Question, error) {
	question, err := s.driver.UpdateQuestion(ctx, update)
	if err != nil {
		return nil, err
	}
	s.questionCache.Delete(ctx, questionCacheKey(question.ID))
	return question, nil
}

// DeleteQuestion deletes a question.
func (s *Store) DeleteQuestion(ctx context.Context, delete *DeleteQuestion) error {
	if err := s.driver.DeleteQuestion(ctx, delete); err != nil {
		return err
	}
	s.questionCache.Delete(ctx, questionCacheKey(delete.ID))
	return nil
}
