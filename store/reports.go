package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

const reportColumns = `id, form_id, type, schedule_type, delivery_method, next_run, created_by, created_at, is_active`

func scanReport(row scanner) (r model.Report, err error) {
	var nextRun sql.NullTime
	err = row.Scan(
		&r.ID, &r.FormID, &r.Type, &r.ScheduleType, &r.DeliveryMethod,
		&nextRun, &r.CreatedBy, &r.CreatedAt, &r.IsActive,
	)
	if nextRun.Valid {
		r.NextRun = &nextRun.Time
	}
	return
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func InsertReport(ctx context.Context, q Querier, r *model.Report) error {
	r.CreatedAt = time.Now().UTC()
	err := q.QueryRowContext(ctx, `
		INSERT INTO report (form_id, type, schedule_type, delivery_method, next_run, created_by, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		r.FormID,
		r.Type,
		r.ScheduleType,
		r.DeliveryMethod,
		nullTime(r.NextRun),
		r.CreatedBy,
		r.CreatedAt,
		r.IsActive,
	).Scan(&r.ID)
	if isUnique(err) {
		return model.Invalid("A %s report for this form already exists.", r.Type)
	}
	return errors.Wrap(err, "db.insert_report")
}

func GetReport(ctx context.Context, q Querier, id int) (model.Report, error) {
	r, err := scanReport(q.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM report
		WHERE id = ?`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return r, model.Missing("report", id)
	}
	return r, errors.Wrap(err, "db.get_report")
}

func GetOwnedReport(ctx context.Context, q Querier, id, owner int) (model.Report, error) {
	r, err := GetReport(ctx, q, id)
	if err == nil && r.CreatedBy != owner {
		err = model.Missing("report", id)
	}
	return r, err
}

func listReports(ctx context.Context, q Querier, where string, args ...any) ([]model.Report, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM report
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_reports")
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_reports.scan")
		}
		reports = append(reports, r)
	}
	return reports, errors.Wrap(rows.Err(), "db.list_reports.rows")
}

func ListReports(ctx context.Context, q Querier, owner int) ([]model.Report, error) {
	return listReports(ctx, q, "created_by = ?", owner)
}

// ListDueReports returns active reports whose next run is at or before now.
func ListDueReports(ctx context.Context, q Querier, now time.Time) ([]model.Report, error) {
	return listReports(ctx, q, "is_active = 1 AND next_run IS NOT NULL AND next_run <= ?", now.UTC())
}

func SetReportNextRun(ctx context.Context, q Querier, id int, next *time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE report SET next_run = ? WHERE id = ?`,
		nullTime(next),
		id,
	)
	return errors.Wrap(err, "db.set_report_next_run")
}

func DeleteReport(ctx context.Context, q Querier, id, owner int) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM report WHERE id = ? AND created_by = ?`,
		id,
		owner,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_report")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_report.verify")
	}
	if n < 1 {
		return model.Missing("report", id)
	}
	return nil
}

// GetReportRecipient returns the email of the report owner, possibly empty.
func GetReportRecipient(ctx context.Context, q Querier, reportID int) (email string, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT u.email
		FROM report r
		INNER JOIN user u ON (u.id = r.created_by)
		WHERE r.id = ?`,
		reportID,
	).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("report", reportID)
		return
	}
	err = errors.Wrap(err, "db.get_report_recipient")
	return
}
