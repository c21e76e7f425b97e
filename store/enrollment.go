package store

import "context"

// Enrollment links a user to a course. One row per (user, course).
type Enrollment struct {
	ID        int32
	UserID    int32
	CourseID  int32
	CreatedTs int64
}

// FindEnrollment is the find condition for enrollments.
type FindEnrollment struct {
	UserID   *int32
	CourseID *int32
}

// DeleteEnrollment is the delete request for an enrollment.
type DeleteEnrollment struct {
	UserID   int32
	CourseID int32
}

// UpsertEnrollment creates the enrollment if it does not exist yet and
// returns the stored row either way.
func (s *Store) UpsertEnrollment(ctx context.Context, upsert *Enrollment) (*Enrollment, error) {
	return s.driver.UpsertEnrollment(ctx, upsert)
}

// ListEnrollments lists enrollments with filter.
func (s *Store) ListEnrollments(ctx context.Context, find *FindEnrollment) ([]*Enrollment, error) {
	return s.driver.ListEnrollments(ctx, find)
}

// DeleteEnrollment deletes an enrollment.
func (s *Store) DeleteEnrollment(ctx context.Context, delete *DeleteEnrollment) error {
	return s.driver.DeleteEnrollment(ctx, delete)
}
