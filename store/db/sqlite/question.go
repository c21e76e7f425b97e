package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/studypace/studypace/store"
)

func (d *DB) CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error) {
	fields := []string{"uid", "topic_id", "prompt", "published", "approved"}
	placeholderValues := []any{create.UID, create.TopicID, create.Prompt, create.Published, create.Approved}

	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO question (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	return create, nil
}

func (d *DB) ListQuestions(ctx context.Context, find *store.FindQuestion) ([]*store.Question, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "question.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "question.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicID; v != nil {
		where, args = append(where, "question.topic_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicIDs; len(v) > 0 {
		holders := []string{}
		for _, id := range v {
			holders = append(holders, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, "question.topic_id IN ("+strings.Join(holders, ", ")+")")
	}
	if v := find.CourseID; v != nil {
		where, args = append(where, "topic.course_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if find.OnlyVisible {
		where = append(where, "question.published = 1", "question.approved = 1")
	}
	if v := find.WithoutCardForUserID; v != nil {
		where = append(where,
			"NOT EXISTS (SELECT 1 FROM card WHERE card.question_id = question.id AND card.user_id = "+placeholder(len(args)+1)+")")
		args = append(args, *v)
	}

	query := `
		SELECT
			question.id, question.uid, question.topic_id, question.created_ts,
			question.prompt, question.published, question.approved
		FROM question
		LEFT JOIN topic ON topic.id = question.topic_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY topic.covered_ts ASC, topic.order_index ASC, question.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Question, 0)
	for rows.Next() {
		var question store.Question
		if err := rows.Scan(
			&question.ID,
			&question.UID,
			&question.TopicID,
			&question.CreatedTs,
			&question.Prompt,
			&question.Published,
			&question.Approved,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		list = append(list, &question)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}

	return list, nil
}

func (d *DB) UpdateQuestion(ctx context.Context, update *store.UpdateQuestion) (*store.Question, error) {
	set, args := []string{}, []any{}

	if v := update.Prompt; v != nil {
		set, args = append(set, "prompt = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Published; v != nil {
		set, args = append(set, "published = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Approved; v != nil {
		set, args = append(set, "approved = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)

	stmt := `UPDATE question SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + `
		RETURNING id, uid, topic_id, created_ts, prompt, published, approved`

	var question store.Question
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&question.ID,
		&question.UID,
		&question.TopicID,
		&question.CreatedTs,
		&question.Prompt,
		&question.Published,
		&question.Approved,
	); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	return &question, nil
}

func (d *DB) DeleteQuestion(ctx context.Context, delete *store.DeleteQuestion) error {
	stmt := `DELETE FROM question WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("question not found")
	}

	return nil
}
