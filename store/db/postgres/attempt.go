package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/studypace/studypace/store"
)

func (d *DB) CreateAttempt(ctx context.Context, create *store.Attempt) (*store.Attempt, error) {
	fields := []string{"user_id", "question_id", "is_correct", "confidence", "time_spent_ms"}
	placeholderValues := []any{
		create.UserID, create.QuestionID, create.IsCorrect, create.Confidence, create.TimeSpentMs,
	}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO attempt (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	return create, nil
}

func (d *DB) ListAttempts(ctx context.Context, find *store.FindAttempt) ([]*store.Attempt, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "attempt.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "attempt.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.QuestionID; v != nil {
		where, args = append(where, "attempt.question_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedAfter; v != nil {
		where, args = append(where, "attempt.created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, user_id, question_id, created_ts, is_correct, confidence, time_spent_ms
		FROM attempt
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY attempt.created_ts DESC, attempt.id DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Attempt, 0)
	for rows.Next() {
		var attempt store.Attempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.UserID,
			&attempt.QuestionID,
			&attempt.CreatedTs,
			&attempt.IsCorrect,
			&attempt.Confidence,
			&attempt.TimeSpentMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		list = append(list, &attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}

	return list, nil
}

func (d *DB) CountAttempts(ctx context.Context, find *store.FindAttempt) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "attempt.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.QuestionID; v != nil {
		where, args = append(where, "attempt.question_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedAfter; v != nil {
		where, args = append(where, "attempt.created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT COUNT(*) FROM attempt WHERE ` + strings.Join(where, " AND ")

	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

func (d *DB) CountActiveUsers(ctx context.Context, since int64) (int64, error) {
	query := `SELECT COUNT(DISTINCT user_id) FROM attempt WHERE created_ts >= ` + placeholder(1)

	var count int64
	if err := d.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return count, nil
}
