package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/studypace/studypace/store"
)

func (d *DB) CreateCourse(ctx context.Context, create *store.Course) (*store.Course, error) {
	fields := []string{"uid", "title"}
	placeholderValues := []any{create.UID, create.Title}

	if create.ExamTs != nil {
		fields = append(fields, "exam_ts")
		placeholderValues = append(placeholderValues, *create.ExamTs)
	}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO course (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	return create, nil
}

func (d *DB) ListCourses(ctx context.Context, find *store.FindCourse) ([]*store.Course, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "course.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "course.uid = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, created_ts, title, exam_ts
		FROM course
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY course.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Course, 0)
	for rows.Next() {
		var course store.Course
		var examTs sql.NullInt64

		if err := rows.Scan(
			&course.ID,
			&course.UID,
			&course.CreatedTs,
			&course.Title,
			&examTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		if examTs.Valid {
			course.ExamTs = &examTs.Int64
		}
		list = append(list, &course)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate courses: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateCourse(ctx context.Context, update *store.UpdateCourse) (*store.Course, error) {
	set, args := []string{}, []any{}

	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ExamTs; v != nil {
		set, args = append(set, "exam_ts = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)

	stmt := `UPDATE course SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, created_ts, title, exam_ts`

	var course store.Course
	var examTs sql.NullInt64
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&course.ID,
		&course.UID,
		&course.CreatedTs,
		&course.Title,
		&examTs,
	); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	if examTs.Valid {
		course.ExamTs = &examTs.Int64
	}

	return &course, nil
}

func (d *DB) DeleteCourse(ctx context.Context, delete *store.DeleteCourse) error {
	stmt := `DELETE FROM course WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("course not found")
	}

	return nil
}
