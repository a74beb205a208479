package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/log"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/store"
)

// Submitter describes who sent a response. UserID is nil for anonymous
// respondents.
type Submitter struct {
	UserID    *int
	IPAddress string
	UserAgent string
}

type Ingest struct {
	db       *sql.DB
	notifier Notifier
}

// Submit validates the answers against the form and stores the response and
// its answers atomically. The notifier runs once the transaction committed.
func (s *Ingest) Submit(ctx context.Context, formID uuid.UUID, answers []model.AnswerInput, by Submitter) (model.Response, error) {
	r := model.Response{
		FormID:      formID,
		SubmittedBy: by.UserID,
		IPAddress:   by.IPAddress,
		UserAgent:   by.UserAgent,
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		form, err := store.GetForm(ctx, tx, formID)
		if err != nil {
			return err
		}
		if !form.IsActive {
			return model.Invalid("Cannot submit to inactive form.")
		}
		fields, err := store.ListFields(ctx, tx, formID)
		if err != nil {
			return err
		}
		if r.Answers, err = checkAnswers(fields, answers); err != nil {
			return err
		}
		return store.InsertResponse(ctx, tx, &r)
	})
	if err != nil {
		return r, err
	}

	responsesSubmitted.Inc()
	log.WithFields(log.Fields{"form": formID, "response": r.ID}).Debug("ingest.submit")
	s.notifier.FormChanged(formID)
	return r, nil
}

// SubmitPublic is Submit behind the form's access check. The form's owner
// needs no password.
func (s *Ingest) SubmitPublic(ctx context.Context, formID uuid.UUID, password string, answers []model.AnswerInput, by Submitter) (model.Response, error) {
	form, err := store.GetForm(ctx, s.db, formID)
	if err != nil {
		return model.Response{}, err
	}
	owned := by.UserID != nil && *by.UserID == form.CreatedBy
	if !owned {
		if err := CheckAccess(form.IsPublic, form.AccessPassword, password); err != nil {
			return model.Response{}, err
		}
	}
	return s.Submit(ctx, formID, answers, by)
}

func checkAnswers(fields []model.Field, answers []model.AnswerInput) ([]model.Answer, error) {
	answered := make(map[string]bool, len(answers))
	var duplicated []string
	for _, a := range answers {
		if answered[a.FieldID] {
			duplicated = append(duplicated, a.FieldID)
		}
		answered[a.FieldID] = true
	}

	byID := make(map[string]model.Field, len(fields))
	var missing []string
	for _, f := range fields {
		byID[f.ID.String()] = f
		if f.IsRequired && !answered[f.ID.String()] {
			missing = append(missing, f.Label)
		}
	}
	if len(missing) > 0 {
		return nil, model.Invalid("Required fields not answered: %s", strings.Join(missing, ", "))
	}

	var invalid []string
	stored := make([]model.Answer, 0, len(answers))
	for _, a := range answers {
		f, ok := byID[a.FieldID]
		if !ok {
			invalid = append(invalid, a.FieldID)
			continue
		}
		stored = append(stored, model.Answer{FieldID: f.ID, FieldLabel: f.Label, Value: a.Value})
	}
	if len(invalid) > 0 {
		return nil, model.Invalid("Invalid field IDs: %s", strings.Join(invalid, ", "))
	}
	if len(duplicated) > 0 {
		return nil, model.Invalid("Fields answered more than once: %s", strings.Join(duplicated, ", "))
	}
	return stored, nil
}

// List returns the responses of an owned form, newest first.
func (s *Ingest) List(ctx context.Context, owner int, formID uuid.UUID) ([]model.Response, error) {
	if _, err := store.GetOwnedForm(ctx, s.db, formID, owner); err != nil {
		return nil, err
	}
	return store.ListResponses(ctx, s.db, formID)
}

// Get returns a response with its answers to the form owner or to the user
// who submitted it.
func (s *Ingest) Get(ctx context.Context, user int, id uuid.UUID) (model.Response, error) {
	r, err := store.GetResponse(ctx, s.db, id)
	if err != nil {
		return r, err
	}
	if err := canSee(ctx, s.db, user, r); err != nil {
		return model.Response{}, err
	}
	return r, nil
}

// Delete follows the visibility rule of Get. Subscribers of the form are
// notified after the commit.
func (s *Ingest) Delete(ctx context.Context, user int, id uuid.UUID) error {
	var formID uuid.UUID
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		r, err := store.GetResponse(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := canSee(ctx, tx, user, r); err != nil {
			return err
		}
		formID, err = store.DeleteResponse(ctx, tx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.notifier.FormChanged(formID)
	return nil
}

func canSee(ctx context.Context, q store.Querier, user int, r model.Response) error {
	if r.SubmittedBy != nil && *r.SubmittedBy == user {
		return nil
	}
	if _, err := store.GetOwnedForm(ctx, q, r.FormID, user); err != nil {
		if model.IsNotFound(err) {
			return model.Missing("response", r.ID)
		}
		return err
	}
	return nil
}
