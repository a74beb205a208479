package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mbolis/formify/catalog"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/ordering"
	"github.com/mbolis/formify/store"
)

type Fields struct {
	db       *sql.DB
	notifier Notifier
}

func normalizeField(f *model.Field) error {
	f.Label = strings.TrimSpace(f.Label)
	if f.Label == "" {
		return model.Invalid("Label is required.")
	}
	opts, err := catalog.Validate(f.FieldType, f.Options)
	if err != nil {
		return err
	}
	f.Options, err = catalog.Encode(opts)
	return err
}

// Create adds f to its form. A zero OrderNum appends it; any other value
// inserts it there, shifting the following fields.
func (s *Fields) Create(ctx context.Context, owner int, f *model.Field) error {
	if err := normalizeField(f); err != nil {
		return err
	}
	if _, err := store.GetOwnedForm(ctx, s.db, f.FormID, owner); err != nil {
		return err
	}
	return reorder(ctx, s.db, ordering.Fields, f.FormID, func(tx *sql.Tx) (err error) {
		if f.OrderNum == 0 {
			f.OrderNum, err = ordering.Fields.Next(ctx, tx, f.FormID)
		} else {
			err = ordering.Fields.MakeRoom(ctx, tx, f.FormID, f.OrderNum)
		}
		if err != nil {
			return err
		}
		return store.InsertField(ctx, tx, f)
	})
}

func (s *Fields) List(ctx context.Context, owner int, formID uuid.UUID) ([]model.Field, error) {
	if _, err := store.GetOwnedForm(ctx, s.db, formID, owner); err != nil {
		return nil, err
	}
	return store.ListFields(ctx, s.db, formID)
}

func (s *Fields) Get(ctx context.Context, owner int, id uuid.UUID) (model.Field, error) {
	return store.GetOwnedField(ctx, s.db, id, owner)
}

// Update changes label, type, options and required flag. Options are checked
// against the resulting type. The position is changed by Reorder only.
func (s *Fields) Update(ctx context.Context, owner int, f *model.Field) error {
	current, err := store.GetOwnedField(ctx, s.db, f.ID, owner)
	if err != nil {
		return err
	}
	if f.FieldType == "" {
		f.FieldType = current.FieldType
	}
	if f.Options == nil {
		f.Options = current.Options
	}
	if err := normalizeField(f); err != nil {
		return err
	}
	f.FormID = current.FormID
	f.OrderNum = current.OrderNum
	f.CreatedAt = current.CreatedAt
	return store.UpdateField(ctx, s.db, f)
}

func (s *Fields) Delete(ctx context.Context, owner int, id uuid.UUID) error {
	f, err := store.GetOwnedField(ctx, s.db, id, owner)
	if err != nil {
		return err
	}
	err = reorder(ctx, s.db, ordering.Fields, f.FormID, func(tx *sql.Tx) error {
		d, err := store.DeleteField(ctx, tx, id)
		if err != nil {
			return err
		}
		return ordering.Fields.Close(ctx, tx, f.FormID, d)
	})
	if err != nil {
		return err
	}
	// the field's answers went with it
	s.notifier.FormChanged(f.FormID)
	return nil
}

// Reorder moves the field to position n and returns it as stored.
func (s *Fields) Reorder(ctx context.Context, owner int, id uuid.UUID, n int) (model.Field, error) {
	f, err := store.GetOwnedField(ctx, s.db, id, owner)
	if err != nil {
		return f, err
	}
	err = reorder(ctx, s.db, ordering.Fields, f.FormID, func(tx *sql.Tx) error {
		_, err := ordering.Fields.Move(ctx, tx, f.FormID, id, n)
		return err
	})
	if err != nil {
		return f, err
	}
	return store.GetField(ctx, s.db, id)
}
