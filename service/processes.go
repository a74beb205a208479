package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mbolis/formify/database"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/ordering"
	"github.com/mbolis/formify/store"
)

type Processes struct {
	db *sql.DB
}

func normalizeProcess(p *model.Process) error {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return model.Invalid("Title is required.")
	}
	if p.ProcessType == "" {
		p.ProcessType = model.ProcessLinear
	}
	if !p.ProcessType.Valid() {
		return model.Invalid("Process type must be one of: linear, free.")
	}
	if p.IsPublic {
		p.AccessPassword = ""
	}
	return nil
}

func (s *Processes) Create(ctx context.Context, p *model.Process) error {
	if err := normalizeProcess(p); err != nil {
		return err
	}
	if err := checkPrivacy(p.IsPublic, p.AccessPassword); err != nil {
		return err
	}
	return store.InsertProcess(ctx, s.db, p)
}

// Update follows the same password and version rules as Forms.Update.
func (s *Processes) Update(ctx context.Context, p *model.Process) error {
	if err := normalizeProcess(p); err != nil {
		return err
	}
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := store.GetOwnedProcess(ctx, tx, p.ID, p.CreatedBy)
		if err != nil {
			return err
		}
		if !p.IsPublic && p.AccessPassword == "" {
			p.AccessPassword = current.AccessPassword
		}
		if err := checkPrivacy(p.IsPublic, p.AccessPassword); err != nil {
			return err
		}
		if p.Version == 0 {
			p.Version = current.Version
		}
		p.CreatedAt = current.CreatedAt
		p.StepCount = current.StepCount
		return store.UpdateProcess(ctx, tx, p)
	})
}

// Get returns an owned process with its steps in order.
func (s *Processes) Get(ctx context.Context, id uuid.UUID, owner int) (model.Process, error) {
	p, err := store.GetOwnedProcess(ctx, s.db, id, owner)
	if err != nil {
		return p, err
	}
	p.Steps, err = store.ListSteps(ctx, s.db, id)
	return p, err
}

func (s *Processes) List(ctx context.Context, owner int) ([]model.Process, error) {
	return store.ListProcesses(ctx, s.db, owner)
}

func (s *Processes) ListPublic(ctx context.Context) ([]model.Process, error) {
	return store.ListPublicProcesses(ctx, s.db)
}

func (s *Processes) Delete(ctx context.Context, id uuid.UUID, owner int) error {
	return store.DeleteProcess(ctx, s.db, id, owner)
}

// AddStep appends st to its process, or inserts it at st.OrderNum when set.
// The step's form must belong to the owner of the process.
func (s *Processes) AddStep(ctx context.Context, owner int, st *model.ProcessStep) error {
	st.StepName = strings.TrimSpace(st.StepName)
	if st.StepName == "" {
		return model.Invalid("Step name is required.")
	}
	if _, err := store.GetOwnedProcess(ctx, s.db, st.ProcessID, owner); err != nil {
		return err
	}
	form, err := store.GetForm(ctx, s.db, st.FormID)
	if err != nil {
		return err
	}
	if form.CreatedBy != owner {
		return model.Invalid("Form must belong to the owner of the process.")
	}

	return reorder(ctx, s.db, ordering.Steps, st.ProcessID, func(tx *sql.Tx) (err error) {
		if st.OrderNum == 0 {
			st.OrderNum, err = ordering.Steps.Next(ctx, tx, st.ProcessID)
		} else {
			err = ordering.Steps.MakeRoom(ctx, tx, st.ProcessID, st.OrderNum)
		}
		if err != nil {
			return err
		}
		return store.InsertStep(ctx, tx, st)
	})
}

func (s *Processes) Step(ctx context.Context, owner int, id uuid.UUID) (model.ProcessStep, error) {
	return store.GetOwnedStep(ctx, s.db, id, owner)
}

// UpdateStep changes name, description and the mandatory flag.
func (s *Processes) UpdateStep(ctx context.Context, owner int, st *model.ProcessStep) error {
	st.StepName = strings.TrimSpace(st.StepName)
	if st.StepName == "" {
		return model.Invalid("Step name is required.")
	}
	current, err := store.GetOwnedStep(ctx, s.db, st.ID, owner)
	if err != nil {
		return err
	}
	st.ProcessID = current.ProcessID
	st.FormID = current.FormID
	st.OrderNum = current.OrderNum
	st.CreatedAt = current.CreatedAt
	return store.UpdateStep(ctx, s.db, st)
}

func (s *Processes) DeleteStep(ctx context.Context, owner int, id uuid.UUID) error {
	st, err := store.GetOwnedStep(ctx, s.db, id, owner)
	if err != nil {
		return err
	}
	return reorder(ctx, s.db, ordering.Steps, st.ProcessID, func(tx *sql.Tx) error {
		d, err := store.DeleteStep(ctx, tx, id)
		if err != nil {
			return err
		}
		return ordering.Steps.Close(ctx, tx, st.ProcessID, d)
	})
}

// ReorderStep moves the step to position n and returns it as stored.
func (s *Processes) ReorderStep(ctx context.Context, owner int, id uuid.UUID, n int) (model.ProcessStep, error) {
	st, err := store.GetOwnedStep(ctx, s.db, id, owner)
	if err != nil {
		return st, err
	}
	err = reorder(ctx, s.db, ordering.Steps, st.ProcessID, func(tx *sql.Tx) error {
		_, err := ordering.Steps.Move(ctx, tx, st.ProcessID, id, n)
		return err
	})
	if err != nil {
		return st, err
	}
	return store.GetStep(ctx, s.db, id)
}
