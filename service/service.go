// Package service holds the business rules sitting between the HTTP routes
// and the SQL in package store.
package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/ordering"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	responsesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formify_responses_submitted_total",
		Help: "Form responses stored",
	})

	orderingIntegrityErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formify_ordering_integrity_errors_total",
		Help: "Mutations rolled back because order_num was no longer dense",
	}, []string{"table"})
)

// Notifier is told about a form whose responses changed. It is only called
// after the change is committed.
type Notifier interface {
	FormChanged(formID uuid.UUID)
}

type nopNotifier struct{}

func (nopNotifier) FormChanged(uuid.UUID) {}

type Services struct {
	Forms      *Forms
	Fields     *Fields
	Processes  *Processes
	Workflow   *Workflow
	Ingest     *Ingest
	Categories *Categories
}

func New(db *sql.DB, notifier Notifier) Services {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	ingest := &Ingest{db: db, notifier: notifier}
	return Services{
		Forms:      &Forms{db: db, notifier: notifier},
		Fields:     &Fields{db: db, notifier: notifier},
		Processes:  &Processes{db: db},
		Workflow:   &Workflow{db: db, ingest: ingest},
		Ingest:     ingest,
		Categories: &Categories{db: db},
	}
}

// CheckAccess lets anybody through a public entity; a private one needs the
// exact password.
func CheckAccess(isPublic bool, stored, supplied string) error {
	if isPublic {
		return nil
	}
	if supplied == "" {
		return model.Denied("Password is required.")
	}
	if supplied != stored {
		return model.Denied("Invalid password.")
	}
	return nil
}

func checkPrivacy(isPublic bool, password string) error {
	if !isPublic && password == "" {
		return model.Invalid("Password is required for private access.")
	}
	return nil
}

// reorder runs fn with the parent locked and checks the sibling set is
// still dense before committing.
func reorder(ctx context.Context, db *sql.DB, seq ordering.Sequence, parent uuid.UUID, fn func(tx *sql.Tx) error) error {
	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		if err := seq.Lock(ctx, tx, parent); err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			return err
		}
		return seq.Verify(ctx, tx, parent)
	})
	if model.IsIntegrity(err) {
		integrityFailed(seq, parent, err)
	}
	return err
}

func integrityFailed(seq ordering.Sequence, parent uuid.UUID, err error) {
	orderingIntegrityErrors.WithLabelValues(seq.Table).Inc()
	log.WithFields(log.Fields{
		"table":  seq.Table,
		"parent": parent,
	}).Errorf("ordering.integrity: %v", err)
}
