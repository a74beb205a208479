package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

const processColumns = `p.id, p.version, p.title, p.description, p.process_type, p.created_by, p.is_public, p.access_password, p.is_active, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM process_step s WHERE s.process_id = p.id)`

func scanProcess(row scanner) (p model.Process, err error) {
	var password sql.NullString
	err = row.Scan(
		&p.ID, &p.Version, &p.Title, &p.Description, &p.ProcessType, &p.CreatedBy,
		&p.IsPublic, &password, &p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.StepCount,
	)
	p.AccessPassword = password.String
	return
}

func InsertProcess(ctx context.Context, q Querier, p *model.Process) error {
	now := time.Now().UTC()
	p.ID = uuid.New()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO process (id, version, title, description, process_type, created_by, is_public, access_password, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Version, p.Title, p.Description, p.ProcessType, p.CreatedBy,
		p.IsPublic, nullString(p.AccessPassword), p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	return errors.Wrap(err, "db.insert_process")
}

func GetProcess(ctx context.Context, q Querier, id uuid.UUID) (model.Process, error) {
	p, err := scanProcess(q.QueryRowContext(ctx, `
		SELECT `+processColumns+`
		FROM process p
		WHERE p.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return p, model.Missing("process", id)
	}
	return p, errors.Wrap(err, "db.get_process")
}

func GetOwnedProcess(ctx context.Context, q Querier, id uuid.UUID, owner int) (model.Process, error) {
	p, err := GetProcess(ctx, q, id)
	if err == nil && p.CreatedBy != owner {
		err = model.Missing("process", id)
	}
	return p, err
}

func listProcesses(ctx context.Context, q Querier, where string, args ...any) ([]model.Process, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+processColumns+`
		FROM process p
		WHERE `+where+`
		ORDER BY p.created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_processes")
	}
	defer rows.Close()

	processes := []model.Process{}
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_processes.scan")
		}
		processes = append(processes, p)
	}
	return processes, errors.Wrap(rows.Err(), "db.list_processes.rows")
}

func ListProcesses(ctx context.Context, q Querier, owner int) ([]model.Process, error) {
	return listProcesses(ctx, q, "p.created_by = ?", owner)
}

func ListPublicProcesses(ctx context.Context, q Querier) ([]model.Process, error) {
	return listProcesses(ctx, q, "p.is_public = 1 AND p.is_active = 1")
}

func UpdateProcess(ctx context.Context, q Querier, p *model.Process) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := q.ExecContext(ctx, `
		UPDATE process
		SET
			title = ?,
			description = ?,
			process_type = ?,
			is_public = ?,
			access_password = ?,
			is_active = ?,
			updated_at = ?,
			version = version+1
		WHERE id = ?
			AND created_by = ?
			AND version = ?`,
		p.Title,
		p.Description,
		p.ProcessType,
		p.IsPublic,
		nullString(p.AccessPassword),
		p.IsActive,
		p.UpdatedAt,
		p.ID,
		p.CreatedBy,
		p.Version,
	)
	if err != nil {
		return errors.Wrap(err, "db.update_process")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.update_process.verify")
	}
	if n < 1 {
		return model.Invalid("Process was modified concurrently, reload and retry.")
	}
	p.Version++
	return nil
}

func DeleteProcess(ctx context.Context, q Querier, id uuid.UUID, owner int) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM process WHERE id = ? AND created_by = ?`,
		id,
		owner,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_process")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_process.verify")
	}
	if n < 1 {
		return model.Missing("process", id)
	}
	return nil
}

const stepColumns = `s.id, s.process_id, s.form_id, s.step_name, s.step_description, s.order_num, s.is_mandatory, s.created_at, s.updated_at`

func scanStep(row scanner) (s model.ProcessStep, err error) {
	err = row.Scan(
		&s.ID, &s.ProcessID, &s.FormID, &s.StepName, &s.StepDescription,
		&s.OrderNum, &s.IsMandatory, &s.CreatedAt, &s.UpdatedAt,
	)
	return
}

func InsertStep(ctx context.Context, q Querier, s *model.ProcessStep) error {
	now := time.Now().UTC()
	s.ID = uuid.New()
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO process_step (id, process_id, form_id, step_name, step_description, order_num, is_mandatory, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProcessID, s.FormID, s.StepName, s.StepDescription,
		s.OrderNum, s.IsMandatory, s.CreatedAt, s.UpdatedAt,
	)
	return errors.Wrap(err, "db.insert_step")
}

func GetStep(ctx context.Context, q Querier, id uuid.UUID) (model.ProcessStep, error) {
	s, err := scanStep(q.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM process_step s
		WHERE s.id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return s, model.Missing("process step", id)
	}
	return s, errors.Wrap(err, "db.get_step")
}

func GetOwnedStep(ctx context.Context, q Querier, id uuid.UUID, owner int) (model.ProcessStep, error) {
	s, err := scanStep(q.QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM process_step s
		INNER JOIN process p ON (p.id = s.process_id)
		WHERE s.id = ?
			AND p.created_by = ?`,
		id,
		owner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return s, model.Missing("process step", id)
	}
	return s, errors.Wrap(err, "db.get_step")
}

func listSteps(ctx context.Context, q Querier, where string, args ...any) ([]model.ProcessStep, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM process_step s
		`+where,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_steps")
	}
	defer rows.Close()

	steps := []model.ProcessStep{}
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_steps.scan")
		}
		steps = append(steps, s)
	}
	return steps, errors.Wrap(rows.Err(), "db.list_steps.rows")
}

func ListSteps(ctx context.Context, q Querier, processID uuid.UUID) ([]model.ProcessStep, error) {
	return listSteps(ctx, q, `WHERE s.process_id = ? ORDER BY s.order_num`, processID)
}

// ListStepsForForm returns the steps that use a form, grouped by process and
// last position first within each process.
func ListStepsForForm(ctx context.Context, q Querier, formID uuid.UUID) ([]model.ProcessStep, error) {
	return listSteps(ctx, q, `WHERE s.form_id = ? ORDER BY s.process_id, s.order_num DESC`, formID)
}

func UpdateStep(ctx context.Context, q Querier, s *model.ProcessStep) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		UPDATE process_step
		SET
			step_name = ?,
			step_description = ?,
			is_mandatory = ?,
			updated_at = ?
		WHERE id = ?`,
		s.StepName,
		s.StepDescription,
		s.IsMandatory,
		s.UpdatedAt,
		s.ID,
	)
	return errors.Wrap(err, "db.update_step")
}

func DeleteStep(ctx context.Context, q Querier, id uuid.UUID) (order int, err error) {
	err = q.QueryRowContext(ctx, `
		DELETE FROM process_step WHERE id = ?
		RETURNING order_num`,
		id,
	).Scan(&order)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("process step", id)
		return
	}
	err = errors.Wrap(err, "db.delete_step")
	return
}
