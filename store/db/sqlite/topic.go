package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/studypace/studypace/store"
)

func (d *DB) CreateTopic(ctx context.Context, create *store.Topic) (*store.Topic, error) {
	fields := []string{"uid", "course_id", "title", "order_index", "covered_ts"}
	placeholderValues := []any{create.UID, create.CourseID, create.Title, create.OrderIndex, create.CoveredTs}

	stmt := `INSERT INTO topic (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	return create, nil
}

func (d *DB) ListTopics(ctx context.Context, find *store.FindTopic) ([]*store.Topic, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "topic.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "topic.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CourseID; v != nil {
		where, args = append(where, "topic.course_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CoveredBefore; v != nil {
		where, args = append(where, "topic.covered_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CoveredAfter; v != nil {
		where, args = append(where, "topic.covered_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	// Syllabus order: coverage date first, order index breaking same-day ties.
	query := `
		SELECT id, uid, course_id, title, order_index, covered_ts
		FROM topic
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY topic.covered_ts ASC, topic.order_index ASC, topic.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topics: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Topic, 0)
	for rows.Next() {
		var topic store.Topic
		if err := rows.Scan(
			&topic.ID,
			&topic.UID,
			&topic.CourseID,
			&topic.Title,
			&topic.OrderIndex,
			&topic.CoveredTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		list = append(list, &topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateTopic(ctx context.Context, update *store.UpdateTopic) (*store.Topic, error) {
	set, args := []string{}, []any{}

	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.OrderIndex; v != nil {
		set, args = append(set, "order_index = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CoveredTs; v != nil {
		set, args = append(set, "covered_ts = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)

	stmt := `UPDATE topic SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, course_id, title, order_index, covered_ts`

	var topic store.Topic
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&topic.ID,
		&topic.UID,
		&topic.CourseID,
		&topic.Title,
		&topic.OrderIndex,
		&topic.CoveredTs,
	); err != nil {
		return nil, fmt.Errorf("failed to update topic: %w", err)
	}

	return &topic, nil
}

func (d *DB) DeleteTopic(ctx context.Context, delete *store.DeleteTopic) error {
	stmt := `DELETE FROM topic WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("topic not found")
	}

	return nil
}
