package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

const responseColumns = `r.id, r.form_id, r.submitted_by, COALESCE(u.username, ''), r.ip_address, r.user_agent, r.submitted_at`

func scanResponse(row scanner) (r model.Response, err error) {
	var submittedBy sql.NullInt64
	err = row.Scan(
		&r.ID, &r.FormID, &submittedBy, &r.Submitter,
		&r.IPAddress, &r.UserAgent, &r.SubmittedAt,
	)
	r.SubmittedBy = intPtr(submittedBy)
	return
}

// InsertResponse stores the response and its answers. It must run inside a
// transaction: answers go through one prepared statement.
func InsertResponse(ctx context.Context, tx *sql.Tx, r *model.Response) error {
	now := time.Now().UTC()
	r.ID = uuid.New()
	r.SubmittedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT INTO response (id, form_id, submitted_by, ip_address, user_agent, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.FormID, nullInt(r.SubmittedBy), r.IPAddress, r.UserAgent, r.SubmittedAt,
	)
	if err != nil {
		return errors.Wrap(err, "db.insert_response")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO answer (id, response_id, field_id, value, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "db.insert_answer.prepare")
	}
	defer stmt.Close()

	for i := range r.Answers {
		a := &r.Answers[i]
		a.ID = uuid.New()
		a.ResponseID = r.ID
		a.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, a.ID, a.ResponseID, a.FieldID, a.Value, a.CreatedAt); err != nil {
			return errors.Wrap(err, "db.insert_answer")
		}
	}
	return nil
}

func GetResponse(ctx context.Context, q Querier, id uuid.UUID) (model.Response, error) {
	r, err := scanResponse(q.QueryRowContext(ctx, `
		SELECT `+responseColumns+`
		FROM response r
		LEFT JOIN user u ON (u.id = r.submitted_by)
		WHERE r.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return r, model.Missing("response", id)
	}
	if err != nil {
		return r, errors.Wrap(err, "db.get_response")
	}

	r.Answers, err = ListAnswers(ctx, q, id)
	return r, err
}

// ListResponses returns the form's responses, newest first, without answers.
func ListResponses(ctx context.Context, q Querier, formID uuid.UUID) ([]model.Response, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+responseColumns+`
		FROM response r
		LEFT JOIN user u ON (u.id = r.submitted_by)
		WHERE r.form_id = ?
		ORDER BY r.submitted_at DESC`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_responses")
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_responses.scan")
		}
		responses = append(responses, r)
	}
	return responses, errors.Wrap(rows.Err(), "db.list_responses.rows")
}

// ListResponsesWithAnswers is ListResponses with every response's answers
// attached in field order.
func ListResponsesWithAnswers(ctx context.Context, q Querier, formID uuid.UUID) ([]model.Response, error) {
	responses, err := ListResponses(ctx, q, formID)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.response_id, a.field_id, f.label, a.value, a.created_at
		FROM answer a
		INNER JOIN response r ON (r.id = a.response_id)
		INNER JOIN field f ON (f.id = a.field_id)
		WHERE r.form_id = ?
		ORDER BY f.order_num`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_form_answers")
	}
	defer rows.Close()

	byResponse := map[uuid.UUID][]model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_form_answers.scan")
		}
		byResponse[a.ResponseID] = append(byResponse[a.ResponseID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "db.list_form_answers.rows")
	}

	for i := range responses {
		responses[i].Answers = byResponse[responses[i].ID]
		if responses[i].Answers == nil {
			responses[i].Answers = []model.Answer{}
		}
	}
	return responses, nil
}

func scanAnswer(row scanner) (a model.Answer, err error) {
	err = row.Scan(&a.ID, &a.ResponseID, &a.FieldID, &a.FieldLabel, &a.Value, &a.CreatedAt)
	return
}

func ListAnswers(ctx context.Context, q Querier, responseID uuid.UUID) ([]model.Answer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.response_id, a.field_id, f.label, a.value, a.created_at
		FROM answer a
		INNER JOIN field f ON (f.id = a.field_id)
		WHERE a.response_id = ?
		ORDER BY f.order_num`,
		responseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_answers")
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_answers.scan")
		}
		answers = append(answers, a)
	}
	return answers, errors.Wrap(rows.Err(), "db.list_answers.rows")
}

// ListFieldValues returns the raw answer values recorded for the field, in
// submission order.
func ListFieldValues(ctx context.Context, q Querier, fieldID uuid.UUID) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT a.value
		FROM answer a
		INNER JOIN response r ON (r.id = a.response_id)
		WHERE a.field_id = ?
		ORDER BY r.submitted_at, a.id`,
		fieldID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_field_values")
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "db.list_field_values.scan")
		}
		values = append(values, v)
	}
	return values, errors.Wrap(rows.Err(), "db.list_field_values.rows")
}

// ListSubmissionTimes returns when each of the form's responses was
// submitted at or after since, oldest first.
func ListSubmissionTimes(ctx context.Context, q Querier, formID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT submitted_at
		FROM response
		WHERE form_id = ?
			AND submitted_at >= ?
		ORDER BY submitted_at`,
		formID,
		since.UTC(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_submission_times")
	}
	defer rows.Close()

	times := []time.Time{}
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, errors.Wrap(err, "db.list_submission_times.scan")
		}
		times = append(times, t)
	}
	return times, errors.Wrap(rows.Err(), "db.list_submission_times.rows")
}

func CountResponses(ctx context.Context, q Querier, formID uuid.UUID) (n int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM response WHERE form_id = ?`,
		formID,
	).Scan(&n)
	err = errors.Wrap(err, "db.count_responses")
	return
}

// LastResponseAt returns nil when the form has no responses.
func LastResponseAt(ctx context.Context, q Querier, formID uuid.UUID) (*time.Time, error) {
	var t time.Time
	err := q.QueryRowContext(ctx, `
		SELECT submitted_at
		FROM response
		WHERE form_id = ?
		ORDER BY submitted_at DESC
		LIMIT 1`,
		formID,
	).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "db.last_response_at")
	}
	return &t, nil
}

func HasResponses(ctx context.Context, q Querier, formID uuid.UUID) (ok bool, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM response WHERE form_id = ?)`,
		formID,
	).Scan(&ok)
	err = errors.Wrap(err, "db.has_responses")
	return
}

// DeleteResponse removes the response and returns the form it belonged to.
func DeleteResponse(ctx context.Context, q Querier, id uuid.UUID) (formID uuid.UUID, err error) {
	err = q.QueryRowContext(ctx, `
		DELETE FROM response WHERE id = ?
		RETURNING form_id`,
		id,
	).Scan(&formID)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("response", id)
		return
	}
	err = errors.Wrap(err, "db.delete_response")
	return
}
