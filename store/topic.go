package store

import "context"

// Topic is one scheduled unit of a course's syllabus. CoveredTs is the date
// the course plan covers it; OrderIndex breaks ties between topics covered
// on the same day.
type Topic struct {
	ID         int32
	UID        string
	CourseID   int32
	Title      string
	OrderIndex int32
	CoveredTs  int64
}

// FindTopic is the find condition for topics. Results are always ordered by
// coverage date, then order index.
type FindTopic struct {
	ID       *int32
	UID      *string
	CourseID *int32

	// CoveredBefore keeps topics with covered_ts <= CoveredBefore.
	CoveredBefore *int64
	// CoveredAfter keeps topics with covered_ts >= CoveredAfter.
	CoveredAfter *int64

	Limit  *int
	Offset *int
}

// UpdateTopic is the update request for a topic.
type UpdateTopic struct {
	ID         int32
	Title      *string
	OrderIndex *int32
	CoveredTs  *int64
}

// DeleteTopic is the delete request for a topic.
type DeleteTopic struct {
	ID int32
}

// CreateTopic creates a new topic.
func (s *Store) CreateTopic(ctx context.Context, create *Topic) (*Topic, error) {
	return s.driver.CreateTopic(ctx, create)
}

// ListTopics lists topics in syllabus order.
func (s *Store) ListTopics(ctx context.Context, find *FindTopic) ([]*Topic, error) {
	return s.driver.ListTopics(ctx, find)
}

// GetTopic gets a single topic by filter.
func (s *Store) GetTopic(ctx context.Context, find *FindTopic) (*Topic, error) {
	limit := 1
	find.Limit = &limit
	list, err := s.driver.ListTopics(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateTopic updates a topic.
func (s *Store) UpdateTopic(ctx context.Context, update *UpdateTopic) (*Topic, error) {
	return s.driver.UpdateTopic(ctx, update)
}

// DeleteTopic deletes a topic.
func (s *Store) DeleteTopic(ctx context.Context, delete *DeleteTopic) error {
	return s.driver.DeleteTopic(ctx, delete)
}
