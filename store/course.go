package store

import "context"

// Course is a unit of enrollable study material.
type Course struct {
	ID        int32
	UID       string
	CreatedTs int64
	Title     string
	// ExamTs is the course's exam date, when one is set. Readiness
	// reports project retention to this instant.
	ExamTs *int64
}

// FindCourse is the find condition for courses.
type FindCourse struct {
	ID  *int32
	UID *string

	Limit  *int
	Offset *int
}

// UpdateCourse is the update request for a course.
type UpdateCourse struct {
	ID    int32
	Title *string
	ExamTs *int64
}

// DeleteCourse is the delete request for a course.
type DeleteCourse struct {
	ID int32
}

// CreateCourse creates a new course.
func (s *Store) CreateCourse(ctx context.Context, create *Course) (*Course, error) {
	return s.driver.CreateCourse(ctx, create)
}

// ListCourses lists courses with filter.
func (s *Store) ListCourses(ctx context.Context, find *FindCourse) ([]*Course, error) {
	return s.driver.ListCourses(ctx, find)
}

// GetCourse gets a single course by filter, consulting the course cache
// for UID lookups.
func (s *Store) GetCourse(ctx context.Context, find *FindCourse) (*Course, error) {
	if find.UID != nil {
		if v, ok := s.courseCache.Get(ctx, *find.UID); ok {
			if course, ok := v.(*Course); ok {
				return course, nil
			}
		}
	}
	list, err := s.driver.ListCourses(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	course := list[0]
	s.courseCache.Set(ctx, course.UID, course)
	return course, nil
}

// UpdateCourse updates a course and invalidates its cache entry.
func (s *Store) UpdateCourse(ctx context.Context, update *UpdateCourse) (*Course, error) {
	course, err := s.driver.UpdateCourse(ctx, update)
	if err != nil {
		return nil, err
	}
	s.courseCache.Delete(ctx, course.UID)
	return course, nil
}

// DeleteCourse deletes a course.
func (s *Store) DeleteCourse(ctx context.Context, delete *DeleteCourse) error {
	course, err := s.GetCourse(ctx, &FindCourse{ID: &delete.ID})
	if err != nil {
		return err
	}
	if err := s.driver.DeleteCourse(ctx, delete); err != nil {
		return err
	}
	if course != nil {
		s.courseCache.Delete(ctx, course.UID)
	}
	return nil
}
