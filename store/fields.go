package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

const fieldColumns = `f.id, f.form_id, f.label, f.field_type, f.is_required, f.options, f.order_num, f.created_at, f.updated_at`

func scanField(row scanner) (f model.Field, err error) {
	var opts string
	err = row.Scan(
		&f.ID, &f.FormID, &f.Label, &f.FieldType, &f.IsRequired,
		&opts, &f.OrderNum, &f.CreatedAt, &f.UpdatedAt,
	)
	if opts == "" {
		opts = "{}"
	}
	f.Options = []byte(opts)
	return
}

func InsertField(ctx context.Context, q Querier, f *model.Field) error {
	now := time.Now().UTC()
	f.ID = uuid.New()
	f.CreatedAt = now
	f.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO field (id, form_id, label, field_type, is_required, options, order_num, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.FormID, f.Label, f.FieldType, f.IsRequired,
		string(f.Options), f.OrderNum, f.CreatedAt, f.UpdatedAt,
	)
	return errors.Wrap(err, "db.insert_field")
}

// GetOwnedField returns the field if its form belongs to owner.
func GetOwnedField(ctx context.Context, q Querier, id uuid.UUID, owner int) (model.Field, error) {
	f, err := scanField(q.QueryRowContext(ctx, `
		SELECT `+fieldColumns+`
		FROM field f
		INNER JOIN form x ON (x.id = f.form_id)
		WHERE f.id = ?
			AND x.created_by = ?`,
		id,
		owner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return f, model.Missing("field", id)
	}
	return f, errors.Wrap(err, "db.get_field")
}

func GetField(ctx context.Context, q Querier, id uuid.UUID) (model.Field, error) {
	f, err := scanField(q.QueryRowContext(ctx, `
		SELECT `+fieldColumns+`
		FROM field f
		WHERE f.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return f, model.Missing("field", id)
	}
	return f, errors.Wrap(err, "db.get_field")
}

func ListFields(ctx context.Context, q Querier, formID uuid.UUID) ([]model.Field, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+fieldColumns+`
		FROM field f
		WHERE f.form_id = ?
		ORDER BY f.order_num`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_fields")
	}
	defer rows.Close()

	fields := []model.Field{}
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_fields.scan")
		}
		fields = append(fields, f)
	}
	return fields, errors.Wrap(rows.Err(), "db.list_fields.rows")
}

func UpdateField(ctx context.Context, q Querier, f *model.Field) error {
	f.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE field
		SET
			label = ?,
			field_type = ?,
			is_required = ?,
			options = ?,
			updated_at = ?
		WHERE id = ?`,
		f.Label,
		f.FieldType,
		f.IsRequired,
		string(f.Options),
		f.UpdatedAt,
		f.ID,
	)
	return errors.Wrap(err, "db.update_field")
}

// DeleteField removes the field and returns the position it occupied.
func DeleteField(ctx context.Context, q Querier, id uuid.UUID) (order int, err error) {
	err = q.QueryRowContext(ctx, `
		DELETE FROM field WHERE id = ?
		RETURNING order_num`,
		id,
	).Scan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("field", id)
		return
	}
	err = errors.Wrap(err, "db.delete_field")
	return
}
