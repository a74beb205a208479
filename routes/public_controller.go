package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/model"
)

func formView(r *http.Request) model.FormView {
	by := submitter(r)
	return model.FormView{
		UserID:    by.UserID,
		IPAddress: by.IPAddress,
		UserAgent: by.UserAgent,
	}
}

func ListPublicForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.Forms.ListPublic(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "list_public_forms", err)
			return
		}

		render.JSON(w, r, forms)
	}
}

// PublicGetForm returns an active form with its fields and records the view.
// A private form needs ?password=.
func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		password := r.URL.Query().Get("password")
		form, err := app.Forms.Open(r.Context(), formID, password, formView(r))
		if err != nil {
			httpx.WriteError(w, r, "get_public_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func PublicSubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := submitRequest{}
		if !decode(w, r, &req) {
			return
		}

		response, err := app.Ingest.SubmitPublic(r.Context(), formID, req.Password, req.Answers, submitter(r))
		if err != nil {
			httpx.WriteError(w, r, "submit_response", err)
			return
		}

		created(w, r, response)
	}
}

// ValidateAccess checks the password of a private form and, when it
// matches, returns the form like PublicGetForm does.
func ValidateAccess(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := validateAccessRequest{}
		if !decode(w, r, &req) {
			return
		}
		formID := uuid.MustParse(req.FormID)

		if _, err := app.Forms.CheckPassword(r.Context(), formID, req.Password); err != nil {
			httpx.WriteError(w, r, "validate_access", err)
			return
		}
		form, err := app.Forms.Open(r.Context(), formID, req.Password, formView(r))
		if err != nil {
			httpx.WriteError(w, r, "validate_access", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func ListPublicProcesses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processes, err := app.Processes.ListPublic(r.Context())
		if err != nil {
			httpx.WriteError(w, r, "list_public_processes", err)
			return
		}

		render.JSON(w, r, processes)
	}
}
