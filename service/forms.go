package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/ordering"
	"github.com/mbolis/formify/store"
)

type Forms struct {
	db       *sql.DB
	notifier Notifier
}

func (s *Forms) Create(ctx context.Context, f *model.Form) error {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return model.Invalid("Title is required.")
	}
	if f.IsPublic {
		f.AccessPassword = ""
	}
	if err := checkPrivacy(f.IsPublic, f.AccessPassword); err != nil {
		return err
	}
	return store.InsertForm(ctx, s.db, f)
}

// Update saves title, description, visibility and activity. A private form
// keeps its stored password when none is supplied. A zero Version skips the
// optimistic check.
func (s *Forms) Update(ctx context.Context, f *model.Form) error {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return model.Invalid("Title is required.")
	}
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := store.GetOwnedForm(ctx, tx, f.ID, f.CreatedBy)
		if err != nil {
			return err
		}
		if f.IsPublic {
			f.AccessPassword = ""
		} else if f.AccessPassword == "" {
			f.AccessPassword = current.AccessPassword
		}
		if err := checkPrivacy(f.IsPublic, f.AccessPassword); err != nil {
			return err
		}
		if f.Version == 0 {
			f.Version = current.Version
		}
		f.CreatedAt = current.CreatedAt
		return store.UpdateForm(ctx, tx, f)
	})
}

// Get returns an owned form with its fields in order.
func (s *Forms) Get(ctx context.Context, id uuid.UUID, owner int) (model.Form, error) {
	f, err := store.GetOwnedForm(ctx, s.db, id, owner)
	if err != nil {
		return f, err
	}
	f.Fields, err = store.ListFields(ctx, s.db, id)
	return f, err
}

func (s *Forms) List(ctx context.Context, owner int) ([]model.Form, error) {
	return store.ListForms(ctx, s.db, owner)
}

func (s *Forms) ListPublic(ctx context.Context) ([]model.Form, error) {
	return store.ListPublicForms(ctx, s.db)
}

// Delete removes the form with its fields and responses. The process steps
// using it go too, and each affected process is compacted in the same
// transaction.
func (s *Forms) Delete(ctx context.Context, id uuid.UUID, owner int) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := store.GetOwnedForm(ctx, tx, id, owner); err != nil {
			return err
		}
		steps, err := store.ListStepsForForm(ctx, tx, id)
		if err != nil {
			return err
		}
		for i, st := range steps {
			first := i == 0 || steps[i-1].ProcessID != st.ProcessID
			last := i == len(steps)-1 || steps[i+1].ProcessID != st.ProcessID
			if err := dropStep(ctx, tx, st, first, last); err != nil {
				return err
			}
		}
		return store.DeleteForm(ctx, tx, id, owner)
	})
	if err != nil {
		return err
	}
	s.notifier.FormChanged(id)
	return nil
}

// dropStep deletes one step and closes its gap. Steps of a process come
// last position first, so no gap is shifted under a step still to go.
func dropStep(ctx context.Context, tx *sql.Tx, st model.ProcessStep, first, last bool) error {
	if first {
		if err := ordering.Steps.Lock(ctx, tx, st.ProcessID); err != nil {
			return err
		}
	}
	d, err := store.DeleteStep(ctx, tx, st.ID)
	if err != nil {
		return err
	}
	if err := ordering.Steps.Close(ctx, tx, st.ProcessID, d); err != nil {
		return err
	}
	if !last {
		return nil
	}
	err = ordering.Steps.Verify(ctx, tx, st.ProcessID)
	if model.IsIntegrity(err) {
		integrityFailed(ordering.Steps, st.ProcessID, err)
	}
	return err
}

// Open returns an active form with its fields to a respondent, after the
// access check, and records the view. A view that cannot be stored is only
// logged.
func (s *Forms) Open(ctx context.Context, id uuid.UUID, password string, view model.FormView) (model.Form, error) {
	f, err := s.active(ctx, id)
	if err != nil {
		return f, err
	}
	if err := CheckAccess(f.IsPublic, f.AccessPassword, password); err != nil {
		return f, err
	}
	f.Fields, err = store.ListFields(ctx, s.db, id)
	if err != nil {
		return f, err
	}

	view.FormID = id
	if err := store.InsertFormView(ctx, s.db, &view); err != nil {
		log.WithFields(log.Fields{"form": id}).Warnf("forms.track_view: %v", err)
	}
	return f, nil
}

// CheckPassword validates access to a private form without recording a view.
func (s *Forms) CheckPassword(ctx context.Context, id uuid.UUID, password string) (model.Form, error) {
	f, err := s.active(ctx, id)
	if err != nil {
		return f, err
	}
	if f.IsPublic {
		return f, model.Invalid("This form is public and does not require a password.")
	}
	return f, CheckAccess(f.IsPublic, f.AccessPassword, password)
}

func (s *Forms) active(ctx context.Context, id uuid.UUID) (model.Form, error) {
	f, err := store.GetForm(ctx, s.db, id)
	if err == nil && !f.IsActive {
		err = model.Missing("form", id)
	}
	return f, err
}
