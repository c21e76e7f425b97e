package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/studypace/studypace/store"
)

func (d *DB) CreateCard(ctx context.Context, create *store.Card) (*store.Card, error) {
	fields := []string{
		"user_id", "question_id", "state", "due_ts",
		"reps", "lapses", "stability", "difficulty",
		"elapsed_days", "scheduled_days", "learning_step",
	}
	placeholderValues := []any{
		create.UserID, create.QuestionID, create.State, create.DueTs,
		create.Reps, create.Lapses, create.Stability, create.Difficulty,
		create.ElapsedDays, create.ScheduledDays, create.LearningStep,
	}

	if create.LastReviewTs != nil {
		fields = append(fields, "last_review_ts")
		placeholderValues = append(placeholderValues, *create.LastReviewTs)
	}

	stmt := `INSERT INTO card (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts, version`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
		&create.Version,
	); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	return create, nil
}

func (d *DB) ListCards(ctx context.Context, find *store.FindCard) ([]*store.Card, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "card.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "card.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.QuestionID; v != nil {
		where, args = append(where, "card.question_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.QuestionIDs; len(v) > 0 {
		holders := []string{}
		for _, id := range v {
			holders = append(holders, placeholder(len(args)+1))
			args = append(args, id)
		}
		where = append(where, "card.question_id IN ("+strings.Join(holders, ", ")+")")
	}
	if v := find.States; len(v) > 0 {
		holders := []string{}
		for _, state := range v {
			holders = append(holders, placeholder(len(args)+1))
			args = append(args, state)
		}
		where = append(where, "card.state IN ("+strings.Join(holders, ", ")+")")
	}
	if v := find.DueBefore; v != nil {
		where, args = append(where, "card.due_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.MaxReps; v != nil {
		where, args = append(where, "card.reps <= "+placeholder(len(args)+1)), append(args, *v)
	}

	from := "FROM card"
	if v := find.CourseID; v != nil {
		from = `FROM card
			JOIN question ON question.id = card.question_id
			JOIN topic ON topic.id = question.topic_id`
		where, args = append(where, "topic.course_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	// Most overdue first.
	query := `
		SELECT
			card.id, card.user_id, card.question_id, card.created_ts, card.updated_ts,
			card.version, card.state, card.due_ts, card.last_review_ts,
			card.reps, card.lapses, card.stability, card.difficulty,
			card.elapsed_days, card.scheduled_days, card.learning_step
		` + from + `
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY card.due_ts ASC, card.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cards: %w", err)
	}

	return list, nil
}

func scanCard(rows *sql.Rows) (*store.Card, error) {
	var card store.Card
	var lastReviewTs sql.NullInt64

	if err := rows.Scan(
		&card.ID,
		&card.UserID,
		&card.QuestionID,
		&card.CreatedTs,
		&card.UpdatedTs,
		&card.Version,
		&card.State,
		&card.DueTs,
		&lastReviewTs,
		&card.Reps,
		&card.Lapses,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.LearningStep,
	); err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	if lastReviewTs.Valid {
		card.LastReviewTs = &lastReviewTs.Int64
	}
	return &card, nil
}

// UpdateCard applies the update only when the row still carries the version
// the caller read. A lost race returns store.ErrConcurrentUpdate so the
// service layer can re-read and re-apply the rating; neither of two racing
// writes is ever silently dropped.
func (d *DB) UpdateCard(ctx context.Context, update *store.UpdateCard) (*store.Card, error) {
	set, args := []string{}, []any{}

	if v := update.State; v != nil {
		set, args = append(set, "state = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DueTs; v != nil {
		set, args = append(set, "due_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastReviewTs; v != nil {
		set, args = append(set, "last_review_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Reps; v != nil {
		set, args = append(set, "reps = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Lapses; v != nil {
		set, args = append(set, "lapses = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Stability; v != nil {
		set, args = append(set, "stability = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Difficulty; v != nil {
		set, args = append(set, "difficulty = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ElapsedDays; v != nil {
		set, args = append(set, "elapsed_days = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ScheduledDays; v != nil {
		set, args = append(set, "scheduled_days = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LearningStep; v != nil {
		set, args = append(set, "learning_step = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	set = append(set, "version = version + 1", "updated_ts = EXTRACT(EPOCH FROM NOW())")
	args = append(args, update.ID, update.ExpectedVersion)

	stmt := `UPDATE card SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)-1) + ` AND version = ` + placeholder(len(args)) + `
		RETURNING
			id, user_id, question_id, created_ts, updated_ts,
			version, state, due_ts, last_review_ts,
			reps, lapses, stability, difficulty,
			elapsed_days, scheduled_days, learning_step`

	var card store.Card
	var lastReviewTs sql.NullInt64
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&card.ID,
		&card.UserID,
		&card.QuestionID,
		&card.CreatedTs,
		&card.UpdatedTs,
		&card.Version,
		&card.State,
		&card.DueTs,
		&lastReviewTs,
		&card.Reps,
		&card.Lapses,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.LearningStep,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}
	if lastReviewTs.Valid {
		card.LastReviewTs = &lastReviewTs.Int64
	}

	return &card, nil
}

func (d *DB) DeleteCard(ctx context.Context, delete *store.DeleteCard) error {
	stmt := `DELETE FROM card WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("card not found")
	}

	return nil
}

func (d *DB) CountCards(ctx context.Context, find *store.FindCard) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "card.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.States; len(v) > 0 {
		holders := []string{}
		for _, state := range v {
			holders = append(holders, placeholder(len(args)+1))
			args = append(args, state)
		}
		where = append(where, "card.state IN ("+strings.Join(holders, ", ")+")")
	}
	if v := find.DueBefore; v != nil {
		where, args = append(where, "card.due_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT COUNT(*) FROM card WHERE ` + strings.Join(where, " AND ")

	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return count, nil
}
