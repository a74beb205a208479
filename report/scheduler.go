package report

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formify_report_runs_total",
		Help: "Report runs by type and delivery result",
	}, []string{"type", "result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formify_report_sweep_duration_seconds",
		Help:    "Time spent running due reports",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

// NextRun returns when a report on the given schedule runs again, or nil for
// manual reports.
func NextRun(schedule model.ScheduleType, now time.Time) *time.Time {
	var next time.Time
	switch schedule {
	case model.ScheduleWeekly:
		next = now.UTC().AddDate(0, 0, 7)
	case model.ScheduleMonthly:
		next = now.UTC().AddDate(0, 0, 30)
	default:
		return nil
	}
	return &next
}

// Run is the outcome of a single report execution.
type Run struct {
	ReportID    int              `json:"report_id"`
	FormID      uuid.UUID        `json:"form_id"`
	Type        model.ReportType `json:"type"`
	Delivered   bool             `json:"delivered"`
	Delivery    *DeliveryResult  `json:"delivery"`
	GeneratedAt time.Time        `json:"generated_at"`
	Payload     any              `json:"payload"`
}

type Scheduler struct {
	db        *sql.DB
	builder   *Builder
	deliverer *Deliverer
	now       func() time.Time
}

func NewScheduler(db *sql.DB, builder *Builder, deliverer *Deliverer) *Scheduler {
	return &Scheduler{db: db, builder: builder, deliverer: deliverer, now: time.Now}
}

// RunOnce generates the report, delivers it when active and moves next_run
// forward for scheduled reports.
func (s *Scheduler) RunOnce(ctx context.Context, r model.Report) (Run, error) {
	now := s.now().UTC()
	run := Run{ReportID: r.ID, FormID: r.FormID, Type: r.Type, GeneratedAt: now}

	form, err := store.GetForm(ctx, s.db, r.FormID)
	if err != nil {
		return run, err
	}
	if run.Payload, err = s.builder.Generate(ctx, r.FormID, r.Type); err != nil {
		return run, err
	}

	result := "skipped"
	if r.IsActive {
		recipient, err := store.GetReportRecipient(ctx, s.db, r.ID)
		if err != nil {
			return run, err
		}
		delivery := s.deliverer.Deliver(r, form, recipient, run.Payload)
		run.Delivery = &delivery
		run.Delivered = delivery.OK
		result = "delivered"
		if !delivery.OK {
			result = "failed"
			log.WithFields(log.Fields{"report": r.ID, "channel": delivery.Channel}).Warnf("report.deliver: %s", delivery.Detail)
		}
	}
	reportRuns.WithLabelValues(string(r.Type), result).Inc()

	if r.ScheduleType != model.ScheduleManual {
		if err := store.SetReportNextRun(ctx, s.db, r.ID, NextRun(r.ScheduleType, now)); err != nil {
			return run, err
		}
	}
	return run, nil
}

// RunDue runs every active report whose next_run is not after now. A report
// that fails does not stop the others; the failures come back together.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) (ran int, err error) {
	timer := prometheus.NewTimer(sweepDuration)
	defer timer.ObserveDuration()

	due, err := store.ListDueReports(ctx, s.db, now)
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	for _, r := range due {
		if _, runErr := s.RunOnce(ctx, r); runErr != nil {
			result = multierror.Append(result, errors.Wrapf(runErr, "report %d", r.ID))
			continue
		}
		ran++
	}
	return ran, result.ErrorOrNil()
}

// Start sweeps for due reports every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("report.scheduler: sweeping every %s", interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ran, err := s.RunDue(ctx, s.now())
			if err != nil {
				log.Errorf("report.sweep: %v", err)
			}
			if ran > 0 {
				log.Infof("report.sweep: ran %d report(s)", ran)
			}
		}
	}
}
