package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

const formColumns = `id, version, title, description, created_by, is_public, access_password, is_active, created_at, updated_at`

func scanForm(row scanner) (f model.Form, err error) {
	var password sql.NullString
	err = row.Scan(
		&f.ID, &f.Version, &f.Title, &f.Description, &f.CreatedBy,
		&f.IsPublic, &password, &f.IsActive, &f.CreatedAt, &f.UpdatedAt,
	)
	f.AccessPassword = password.String
	return
}

func InsertForm(ctx context.Context, q Querier, f *model.Form) error {
	now := time.Now().UTC()
	f.ID = uuid.New()
	f.Version = 1
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO form (id, version, title, description, created_by, is_public, access_password, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Version, f.Title, f.Description, f.CreatedBy,
		f.IsPublic, nullString(f.AccessPassword), f.IsActive, f.CreatedAt, f.UpdatedAt,
	)
	return errors.Wrap(err, "db.insert_form")
}

func GetForm(ctx context.Context, q Querier, id uuid.UUID) (model.Form, error) {
	f, err := scanForm(q.QueryRowContext(ctx, `
		SELECT `+formColumns+`
		FROM form
		WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return f, model.Missing("form", id)
	}
	return f, errors.Wrap(err, "db.get_form")
}

// GetOwnedForm treats forms of other owners as missing.
func GetOwnedForm(ctx context.Context, q Querier, id uuid.UUID, owner int) (model.Form, error) {
	f, err := scanForm(q.QueryRowContext(ctx, `
		SELECT `+formColumns+`
		FROM form
		WHERE id = ?
			AND created_by = ?`,
		id,
		owner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return f, model.Missing("form", id)
	}
	return f, errors.Wrap(err, "db.get_form")
}

func listForms(ctx context.Context, q Querier, where string, args ...any) ([]model.Form, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+formColumns+`
		FROM form
		WHERE `+where+`
		ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_forms")
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_forms.scan")
		}
		forms = append(forms, f)
	}
	return forms, errors.Wrap(rows.Err(), "db.list_forms.rows")
}

func ListForms(ctx context.Context, q Querier, owner int) ([]model.Form, error) {
	return listForms(ctx, q, "created_by = ?", owner)
}

func ListPublicForms(ctx context.Context, q Querier) ([]model.Form, error) {
	return listForms(ctx, q, "is_public = 1 AND is_active = 1")
}

// UpdateForm applies an optimistic lock on f.Version; a stale version is
// reported as a validation error.
func UpdateForm(ctx context.Context, q Querier, f *model.Form) error {
	f.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE form
		SET
			title = ?,
			description = ?,
			is_public = ?,
			access_password = ?,
			is_active = ?,
			updated_at = ?,
			version = version+1
		WHERE id = ?
			AND created_by = ?
			AND version = ?`,
		f.Title,
		f.Description,
		f.IsPublic,
		nullString(f.AccessPassword),
		f.IsActive,
		f.UpdatedAt,
		f.ID,
		f.CreatedBy,
		f.Version,
	)
	if err != nil {
		return errors.Wrap(err, "db.update_form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.update_form.verify")
	}
	if n < 1 {
		return model.Invalid("Form was modified concurrently, reload and retry.")
	}
	f.Version++
	return nil
}

func DeleteForm(ctx context.Context, q Querier, id uuid.UUID, owner int) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM form WHERE id = ? AND created_by = ?`,
		id,
		owner,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_form")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_form.verify")
	}
	if n < 1 {
		return model.Missing("form", id)
	}
	return nil
}

func InsertFormView(ctx context.Context, q Querier, v *model.FormView) error {
	v.ViewedAt = time.Now().UTC()
	err := q.QueryRowContext(ctx, `
		INSERT INTO form_view (form_id, user_id, ip_address, user_agent, viewed_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		v.FormID,
		nullInt(v.UserID),
		v.IPAddress,
		v.UserAgent,
		v.ViewedAt,
	).Scan(&v.ID)
	return errors.Wrap(err, "db.insert_form_view")
}

func CountFormViews(ctx context.Context, q Querier, formID uuid.UUID) (n int, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM form_view WHERE form_id = ?`,
		formID,
	).Scan(&n)
	err = errors.Wrap(err, "db.count_form_views")
	return
}
