package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) process(t *testing.T, typ model.ProcessType, forms ...model.Form) (model.Process, []model.ProcessStep) {
	t.Helper()
	ctx := context.Background()
	p := model.Process{Title: "Onboarding", ProcessType: typ, CreatedBy: e.owner, IsPublic: true, IsActive: true}
	require.NoError(t, e.svc.Processes.Create(ctx, &p))

	var steps []model.ProcessStep
	for _, f := range forms {
		st := model.ProcessStep{ProcessID: p.ID, FormID: f.ID, StepName: f.Title, IsMandatory: true}
		require.NoError(t, e.svc.Processes.AddStep(ctx, e.owner, &st))
		steps = append(steps, st)
	}
	return p, steps
}

func TestWorkflow_LinearProgress(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	first, second := e.form(t, "Profile"), e.form(t, "Contract")
	p, steps := e.process(t, model.ProcessLinear, first, second)

	pr, err := e.svc.Workflow.Progress(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, Progress{ProcessID: p.ID, TotalSteps: 2}, pr)

	cur, err := e.svc.Workflow.CurrentStep(ctx, p.ID, "")
	require.NoError(t, err)
	require.NotNil(t, cur.Step)
	assert.Equal(t, steps[0].ID, cur.Step.ID)
	assert.Equal(t, first.ID, cur.Form.ID)
	assert.False(t, cur.IsCompleted)

	done, err := e.svc.Workflow.CompleteStep(ctx, steps[0].ID, "", nil, Submitter{})
	require.NoError(t, err)
	require.NotNil(t, done.NextStep)
	assert.Equal(t, steps[1].ID, done.NextStep.ID)
	assert.False(t, done.IsProcessComplete)

	pr, err = e.svc.Workflow.Progress(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, pr.CompletedSteps)
	assert.Equal(t, 50.0, pr.Percentage)

	done, err = e.svc.Workflow.CompleteStep(ctx, steps[1].ID, "", nil, Submitter{})
	require.NoError(t, err)
	assert.Nil(t, done.NextStep)
	assert.True(t, done.IsProcessComplete)

	pr, err = e.svc.Workflow.Progress(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, pr.Percentage)
	assert.True(t, pr.IsComplete)

	cur, err = e.svc.Workflow.CurrentStep(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cur.Step)
	assert.True(t, cur.IsCompleted)
}

func TestWorkflow_PercentageIsRounded(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b, c := e.form(t, "A"), e.form(t, "B"), e.form(t, "C")
	p, steps := e.process(t, model.ProcessFree, a, b, c)

	_, err := e.svc.Workflow.CompleteStep(ctx, steps[2].ID, "", nil, Submitter{})
	require.NoError(t, err)

	pr, err := e.svc.Workflow.Progress(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 33.33, pr.Percentage)
}

func TestWorkflow_FreeListsEveryStep(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b := e.form(t, "A"), e.form(t, "B")
	p, steps := e.process(t, model.ProcessFree, a, b)

	done, err := e.svc.Workflow.CompleteStep(ctx, steps[1].ID, "", nil, Submitter{})
	require.NoError(t, err)
	assert.Nil(t, done.NextStep)

	cur, err := e.svc.Workflow.CurrentStep(ctx, p.ID, "")
	require.NoError(t, err)
	require.Len(t, cur.Steps, 2)
	assert.False(t, cur.Steps[0].IsCompleted)
	assert.True(t, cur.Steps[1].IsCompleted)
	assert.False(t, cur.IsCompleted)
}

func TestWorkflow_EmptyProcess(t *testing.T) {
	e := setup(t)
	p, _ := e.process(t, model.ProcessLinear)

	pr, err := e.svc.Workflow.Progress(context.Background(), p.ID, "")
	require.NoError(t, err)
	assert.Zero(t, pr.Percentage)
	assert.Zero(t, pr.TotalSteps)
}

func TestWorkflow_PrivateProcess(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	f := e.form(t, "A")
	p := model.Process{Title: "Hidden", CreatedBy: e.owner, AccessPassword: "s3cret", IsActive: true}
	require.NoError(t, e.svc.Processes.Create(ctx, &p))
	st := model.ProcessStep{ProcessID: p.ID, FormID: f.ID, StepName: "A"}
	require.NoError(t, e.svc.Processes.AddStep(ctx, e.owner, &st))

	_, err := e.svc.Workflow.Steps(ctx, p.ID, "")
	assert.True(t, model.IsDenied(err))
	_, err = e.svc.Workflow.CompleteStep(ctx, st.ID, "bad", nil, Submitter{})
	assert.True(t, model.IsDenied(err))

	got, err := e.svc.Workflow.Steps(ctx, p.ID, "s3cret")
	require.NoError(t, err)
	assert.Len(t, got.Steps, 1)

	_, err = e.svc.Workflow.Progress(ctx, uuid.New(), "")
	assert.True(t, model.IsNotFound(err))
}

func TestProcesses_StepFormMustShareOwner(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	p, _ := e.process(t, model.ProcessLinear)

	foreign := model.Form{Title: "Theirs", CreatedBy: e.other, IsPublic: true, IsActive: true}
	require.NoError(t, e.svc.Forms.Create(ctx, &foreign))

	st := model.ProcessStep{ProcessID: p.ID, FormID: foreign.ID, StepName: "Theirs"}
	assert.True(t, model.IsValidation(e.svc.Processes.AddStep(ctx, e.owner, &st)))
}

func TestProcesses_StepOrdering(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b, c := e.form(t, "A"), e.form(t, "B"), e.form(t, "C")
	p, steps := e.process(t, model.ProcessLinear, a, b, c)

	_, err := e.svc.Processes.ReorderStep(ctx, e.owner, steps[0].ID, 3)
	require.NoError(t, err)
	require.NoError(t, e.svc.Processes.DeleteStep(ctx, e.owner, steps[2].ID))

	got, err := e.svc.Processes.Get(ctx, p.ID, e.owner)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "B", got.Steps[0].StepName)
	assert.Equal(t, 1, got.Steps[0].OrderNum)
	assert.Equal(t, "A", got.Steps[1].StepName)
	assert.Equal(t, 2, got.Steps[1].OrderNum)

	_, err = e.svc.Processes.ReorderStep(ctx, e.other, steps[0].ID, 1)
	assert.True(t, model.IsNotFound(err))
}

func TestProcesses_TypeIsValidated(t *testing.T) {
	e := setup(t)
	p := model.Process{Title: "Odd", ProcessType: "circular", CreatedBy: e.owner, IsPublic: true}
	assert.True(t, model.IsValidation(e.svc.Processes.Create(context.Background(), &p)))
}

func (e *env) stepNames(t *testing.T, processID uuid.UUID) []string {
	t.Helper()
	p, err := e.svc.Processes.Get(context.Background(), processID, e.owner)
	require.NoError(t, err)
	names := []string{}
	for i, st := range p.Steps {
		require.Equal(t, i+1, st.OrderNum)
		names = append(names, st.StepName)
	}
	return names
}

func TestForms_DeleteCompactsProcessSteps(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	a, b, c := e.form(t, "A"), e.form(t, "B"), e.form(t, "C")
	first, steps := e.process(t, model.ProcessLinear, a, b, c, b)
	second, _ := e.process(t, model.ProcessFree, b, a)

	require.NoError(t, e.svc.Forms.Delete(ctx, b.ID, e.owner))
	assert.Equal(t, []string{"A", "C"}, e.stepNames(t, first.ID))
	assert.Equal(t, []string{"A"}, e.stepNames(t, second.ID))
	assert.Equal(t, []uuid.UUID{b.ID}, e.notified.calls())

	// later edits of the same processes still find a dense order
	_, err := e.svc.Processes.ReorderStep(ctx, e.owner, steps[0].ID, 2)
	require.NoError(t, err)
	d := e.form(t, "D")
	st := model.ProcessStep{ProcessID: first.ID, FormID: d.ID, StepName: "D"}
	require.NoError(t, e.svc.Processes.AddStep(ctx, e.owner, &st))
	assert.Equal(t, 3, st.OrderNum)
	assert.Equal(t, []string{"C", "A", "D"}, e.stepNames(t, first.ID))
	require.NoError(t, e.svc.Processes.DeleteStep(ctx, e.owner, steps[2].ID))
	assert.Equal(t, []string{"A", "D"}, e.stepNames(t, first.ID))
}
