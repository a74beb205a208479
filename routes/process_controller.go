package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/model"
)

func CreateProcess(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := processRequest{}
		if !decode(w, r, &req) {
			return
		}

		process := req.process()
		process.CreatedBy = owner(r)
		err := app.Processes.Create(r.Context(), &process)
		if err != nil {
			httpx.WriteError(w, r, "create_process", err)
			return
		}

		created(w, r, process)
	}
}

func ListProcesses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processes, err := app.Processes.List(r.Context(), owner(r))
		if err != nil {
			httpx.WriteError(w, r, "list_processes", err)
			return
		}

		render.JSON(w, r, processes)
	}
}

func GetProcess(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		process, err := app.Processes.Get(r.Context(), processID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "get_process", err)
			return
		}

		render.JSON(w, r, process)
	}
}

func UpdateProcess(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := processRequest{}
		if !decode(w, r, &req) {
			return
		}

		process := req.process()
		process.ID = processID
		process.CreatedBy = owner(r)
		err := app.Processes.Update(r.Context(), &process)
		if err != nil {
			httpx.WriteError(w, r, "update_process", err)
			return
		}

		render.JSON(w, r, process)
	}
}

func DeleteProcess(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Processes.Delete(r.Context(), processID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "delete_process", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := stepRequest{}
		if !decode(w, r, &req) {
			return
		}

		step := model.ProcessStep{
			ProcessID:       processID,
			FormID:          uuid.MustParse(req.FormID),
			StepName:        req.StepName,
			StepDescription: req.StepDescription,
			OrderNum:        req.OrderNum,
			IsMandatory:     boolOr(req.IsMandatory, true),
		}
		err := app.Processes.AddStep(r.Context(), owner(r), &step)
		if err != nil {
			httpx.WriteError(w, r, "create_process_step", err)
			return
		}

		created(w, r, step)
	}
}

func GetStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stepID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		step, err := app.Processes.Step(r.Context(), owner(r), stepID)
		if err != nil {
			httpx.WriteError(w, r, "get_process_step", err)
			return
		}

		render.JSON(w, r, step)
	}
}

func UpdateStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stepID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := stepUpdateRequest{}
		if !decode(w, r, &req) {
			return
		}

		step := model.ProcessStep{
			ID:              stepID,
			StepName:        req.StepName,
			StepDescription: req.StepDescription,
			IsMandatory:     boolOr(req.IsMandatory, true),
		}
		err := app.Processes.UpdateStep(r.Context(), owner(r), &step)
		if err != nil {
			httpx.WriteError(w, r, "update_process_step", err)
			return
		}

		render.JSON(w, r, step)
	}
}

func DeleteStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stepID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Processes.DeleteStep(r.Context(), owner(r), stepID)
		if err != nil {
			httpx.WriteError(w, r, "delete_process_step", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ReorderStep(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stepID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := reorderRequest{}
		if !decode(w, r, &req) {
			return
		}

		step, err := app.Processes.ReorderStep(r.Context(), owner(r), stepID, req.OrderNum)
		if err != nil {
			httpx.WriteError(w, r, "reorder_process_step", err)
			return
		}

		render.JSON(w, r, step)
	}
}
