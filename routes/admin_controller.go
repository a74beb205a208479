package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/catalog"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/model"
)

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := formRequest{}
		if !decode(w, r, &req) {
			return
		}

		form := req.form()
		form.CreatedBy = owner(r)
		err := app.Forms.Create(r.Context(), &form)
		if err != nil {
			httpx.WriteError(w, r, "create_form", err)
			return
		}

		created(w, r, form)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := app.Forms.List(r.Context(), owner(r))
		if err != nil {
			httpx.WriteError(w, r, "list_forms", err)
			return
		}

		render.JSON(w, r, forms)
	}
}

func GetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		form, err := app.Forms.Get(r.Context(), formID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := formRequest{}
		if !decode(w, r, &req) {
			return
		}

		form := req.form()
		form.ID = formID
		form.CreatedBy = owner(r)
		err := app.Forms.Update(r.Context(), &form)
		if err != nil {
			httpx.WriteError(w, r, "update_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Forms.Delete(r.Context(), formID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "delete_form", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := fieldRequest{}
		if !decode(w, r, &req) {
			return
		}

		field := model.Field{
			FormID:     formID,
			Label:      req.Label,
			FieldType:  req.FieldType,
			IsRequired: req.IsRequired,
			Options:    req.Options,
			OrderNum:   req.OrderNum,
		}
		err := app.Fields.Create(r.Context(), owner(r), &field)
		if err != nil {
			httpx.WriteError(w, r, "create_field", err)
			return
		}

		created(w, r, field)
	}
}

func ListFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		fields, err := app.Fields.List(r.Context(), owner(r), formID)
		if err != nil {
			httpx.WriteError(w, r, "list_fields", err)
			return
		}

		render.JSON(w, r, fields)
	}
}

func GetField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fieldID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		field, err := app.Fields.Get(r.Context(), owner(r), fieldID)
		if err != nil {
			httpx.WriteError(w, r, "get_field", err)
			return
		}

		render.JSON(w, r, field)
	}
}

func UpdateField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fieldID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := fieldRequest{}
		if !decode(w, r, &req) {
			return
		}

		field := model.Field{
			ID:         fieldID,
			Label:      req.Label,
			FieldType:  req.FieldType,
			IsRequired: req.IsRequired,
			Options:    req.Options,
		}
		err := app.Fields.Update(r.Context(), owner(r), &field)
		if err != nil {
			httpx.WriteError(w, r, "update_field", err)
			return
		}

		render.JSON(w, r, field)
	}
}

func DeleteField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fieldID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Fields.Delete(r.Context(), owner(r), fieldID)
		if err != nil {
			httpx.WriteError(w, r, "delete_field", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ReorderField(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fieldID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		req := reorderRequest{}
		if !decode(w, r, &req) {
			return
		}

		field, err := app.Fields.Reorder(r.Context(), owner(r), fieldID, req.OrderNum)
		if err != nil {
			httpx.WriteError(w, r, "reorder_field", err)
			return
		}

		render.JSON(w, r, field)
	}
}

func FieldTypes(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, catalog.Types())
}

func ProcessTypes(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, model.ProcessTypes)
}
