package report

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/store"
)

// Reports manages report definitions of form owners.
type Reports struct {
	db  *sql.DB
	now func() time.Time
}

func NewReports(db *sql.DB) *Reports {
	return &Reports{db: db, now: time.Now}
}

// Create checks the definition and sets the first next_run from the
// schedule.
func (s *Reports) Create(ctx context.Context, r *model.Report) error {
	if !r.Type.Valid() {
		return model.Invalid("Report type must be one of: summary, detailed.")
	}
	if r.ScheduleType == "" {
		r.ScheduleType = model.ScheduleManual
	}
	if !r.ScheduleType.Valid() {
		return model.Invalid("Schedule type must be one of: manual, weekly, monthly.")
	}
	if r.DeliveryMethod == "" {
		r.DeliveryMethod = model.DeliveryEmail
	}
	if r.DeliveryMethod != model.DeliveryEmail {
		return model.Invalid("Delivery method must be: email.")
	}
	if _, err := store.GetOwnedForm(ctx, s.db, r.FormID, r.CreatedBy); err != nil {
		return err
	}
	r.NextRun = NextRun(r.ScheduleType, s.now())
	return store.InsertReport(ctx, s.db, r)
}

func (s *Reports) Get(ctx context.Context, id, owner int) (model.Report, error) {
	return store.GetOwnedReport(ctx, s.db, id, owner)
}

func (s *Reports) List(ctx context.Context, owner int) ([]model.Report, error) {
	return store.ListReports(ctx, s.db, owner)
}

func (s *Reports) Delete(ctx context.Context, id, owner int) error {
	return store.DeleteReport(ctx, s.db, id, owner)
}
