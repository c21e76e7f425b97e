package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/studypace/studypace/store"
)

func (d *DB) UpsertEnrollment(ctx context.Context, upsert *store.Enrollment) (*store.Enrollment, error) {
	stmt := `INSERT INTO enrollment (user_id, course_id)
		VALUES (` + placeholders(2) + `)
		ON CONFLICT (user_id, course_id) DO UPDATE SET user_id = excluded.user_id
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, upsert.UserID, upsert.CourseID).Scan(
		&upsert.ID,
		&upsert.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert enrollment: %w", err)
	}

	return upsert, nil
}

func (d *DB) ListEnrollments(ctx context.Context, find *store.FindEnrollment) ([]*store.Enrollment, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "enrollment.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CourseID; v != nil {
		where, args = append(where, "enrollment.course_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, course_id, created_ts
		FROM enrollment
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY enrollment.id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Enrollment, 0)
	for rows.Next() {
		var enrollment store.Enrollment
		if err := rows.Scan(
			&enrollment.ID,
			&enrollment.UserID,
			&enrollment.CourseID,
			&enrollment.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		list = append(list, &enrollment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enrollments: %w", err)
	}

	return list, nil
}

func (d *DB) DeleteEnrollment(ctx context.Context, delete *store.DeleteEnrollment) error {
	stmt := `DELETE FROM enrollment WHERE user_id = ` + placeholder(1) + ` AND course_id = ` + placeholder(2)
	if _, err := d.db.ExecContext(ctx, stmt, delete.UserID, delete.CourseID); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	return nil
}
