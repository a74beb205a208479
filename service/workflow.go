package service

import (
	"context"
	"database/sql"
	"math"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/store"
)

// Workflow drives respondents through a process. A step counts as completed
// once its form has at least one response.
type Workflow struct {
	db     *sql.DB
	ingest *Ingest
}

type StepState struct {
	Step        model.ProcessStep `json:"step"`
	Form        model.Form        `json:"form"`
	IsCompleted bool              `json:"is_completed"`
}

// CurrentStep is the position of a respondent in a process. Linear processes
// fill Step and Form; free processes fill Steps.
type CurrentStep struct {
	ProcessType model.ProcessType  `json:"process_type"`
	Step        *model.ProcessStep `json:"current_step,omitempty"`
	Form        *model.Form        `json:"form,omitempty"`
	Steps       []StepState        `json:"steps,omitempty"`
	IsCompleted bool               `json:"is_completed"`
}

type Progress struct {
	ProcessID      uuid.UUID `json:"process_id"`
	CompletedSteps int       `json:"completed_steps"`
	TotalSteps     int       `json:"total_steps"`
	Percentage     float64   `json:"progress_percentage"`
	IsComplete     bool      `json:"is_complete"`
}

type Completion struct {
	Response          model.Response     `json:"response"`
	NextStep          *model.ProcessStep `json:"next_step"`
	IsProcessComplete bool               `json:"is_process_complete"`
}

// open loads an active process after the access check.
func (w *Workflow) open(ctx context.Context, id uuid.UUID, password string) (model.Process, error) {
	p, err := store.GetProcess(ctx, w.db, id)
	if err != nil {
		return p, err
	}
	if !p.IsActive {
		return p, model.Missing("process", id)
	}
	return p, CheckAccess(p.IsPublic, p.AccessPassword, password)
}

// Steps returns the process with its steps in order.
func (w *Workflow) Steps(ctx context.Context, processID uuid.UUID, password string) (model.Process, error) {
	p, err := w.open(ctx, processID, password)
	if err != nil {
		return p, err
	}
	p.Steps, err = store.ListSteps(ctx, w.db, processID)
	if p.Steps == nil {
		p.Steps = []model.ProcessStep{}
	}
	return p, err
}

func (w *Workflow) CurrentStep(ctx context.Context, processID uuid.UUID, password string) (CurrentStep, error) {
	p, err := w.Steps(ctx, processID, password)
	if err != nil {
		return CurrentStep{}, err
	}
	cur := CurrentStep{ProcessType: p.ProcessType}

	if p.ProcessType == model.ProcessLinear {
		for i := range p.Steps {
			done, err := store.HasResponses(ctx, w.db, p.Steps[i].FormID)
			if err != nil {
				return cur, err
			}
			if done {
				continue
			}
			form, err := w.form(ctx, p.Steps[i].FormID)
			if err != nil {
				return cur, err
			}
			cur.Step, cur.Form = &p.Steps[i], &form
			return cur, nil
		}
		cur.IsCompleted = true
		return cur, nil
	}

	cur.Steps = make([]StepState, 0, len(p.Steps))
	cur.IsCompleted = true
	for _, st := range p.Steps {
		done, err := store.HasResponses(ctx, w.db, st.FormID)
		if err != nil {
			return cur, err
		}
		form, err := w.form(ctx, st.FormID)
		if err != nil {
			return cur, err
		}
		cur.Steps = append(cur.Steps, StepState{Step: st, Form: form, IsCompleted: done})
		cur.IsCompleted = cur.IsCompleted && done
	}
	return cur, nil
}

func (w *Workflow) form(ctx context.Context, id uuid.UUID) (model.Form, error) {
	f, err := store.GetForm(ctx, w.db, id)
	if err != nil {
		return f, err
	}
	f.Fields, err = store.ListFields(ctx, w.db, id)
	return f, err
}

func (w *Workflow) Progress(ctx context.Context, processID uuid.UUID, password string) (Progress, error) {
	p, err := w.Steps(ctx, processID, password)
	if err != nil {
		return Progress{}, err
	}
	return w.progress(ctx, p)
}

func (w *Workflow) progress(ctx context.Context, p model.Process) (Progress, error) {
	pr := Progress{ProcessID: p.ID, TotalSteps: len(p.Steps)}
	for _, st := range p.Steps {
		done, err := store.HasResponses(ctx, w.db, st.FormID)
		if err != nil {
			return pr, err
		}
		if done {
			pr.CompletedSteps++
		}
	}
	if pr.TotalSteps > 0 {
		pct := float64(pr.CompletedSteps) / float64(pr.TotalSteps) * 100
		pr.Percentage = math.Round(pct*100) / 100
	}
	pr.IsComplete = pr.CompletedSteps == pr.TotalSteps
	return pr, nil
}

// CompleteStep submits answers to the step's form. For linear processes the
// step that follows it is returned as NextStep.
func (w *Workflow) CompleteStep(ctx context.Context, stepID uuid.UUID, password string, answers []model.AnswerInput, by Submitter) (Completion, error) {
	var c Completion
	st, err := store.GetStep(ctx, w.db, stepID)
	if err != nil {
		return c, err
	}
	p, err := w.Steps(ctx, st.ProcessID, password)
	if err != nil {
		return c, err
	}

	c.Response, err = w.ingest.Submit(ctx, st.FormID, answers, by)
	if err != nil {
		return c, err
	}

	if p.ProcessType == model.ProcessLinear {
		for i := range p.Steps {
			if p.Steps[i].ID == stepID && i+1 < len(p.Steps) {
				c.NextStep = &p.Steps[i+1]
				break
			}
		}
	}

	pr, err := w.progress(ctx, p)
	if err != nil {
		return c, err
	}
	c.IsProcessComplete = pr.IsComplete
	return c, nil
}
