package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/httpx"
)

func ProcessSteps(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := queryUUID(w, r, "process_id")
		if !ok {
			return
		}

		process, err := app.Workflow.Steps(r.Context(), processID, r.URL.Query().Get("password"))
		if err != nil {
			httpx.WriteError(w, r, "workflow.process_steps", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"process": process,
			"steps":   process.Steps,
		})
	}
}

func CurrentStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := queryUUID(w, r, "process_id")
		if !ok {
			return
		}

		current, err := app.Workflow.CurrentStep(r.Context(), processID, r.URL.Query().Get("password"))
		if err != nil {
			httpx.WriteError(w, r, "workflow.current_step", err)
			return
		}

		render.JSON(w, r, current)
	}
}

func CompleteStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := completeStepRequest{}
		if !decode(w, r, &req) {
			return
		}

		completion, err := app.Workflow.CompleteStep(r.Context(), uuid.MustParse(req.StepID), req.Password, req.Answers, submitter(r))
		if err != nil {
			httpx.WriteError(w, r, "workflow.complete_step", err)
			return
		}

		created(w, r, completion)
	}
}

func ProcessProgress(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := queryUUID(w, r, "process_id")
		if !ok {
			return
		}

		progress, err := app.Workflow.Progress(r.Context(), processID, r.URL.Query().Get("password"))
		if err != nil {
			httpx.WriteError(w, r, "workflow.progress", err)
			return
		}

		render.JSON(w, r, progress)
	}
}
