package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/model"
)

func CreateCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := categoryRequest{}
		if !decode(w, r, &req) {
			return
		}

		category := model.Category{
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   owner(r),
		}
		err := app.Categories.Create(r.Context(), &category)
		if err != nil {
			httpx.WriteError(w, r, "create_category", err)
			return
		}

		created(w, r, category)
	}
}

func ListCategories(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := app.Categories.List(r.Context(), owner(r))
		if err != nil {
			httpx.WriteError(w, r, "list_categories", err)
			return
		}

		render.JSON(w, r, categories)
	}
}

func GetCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		category, err := app.Categories.Get(r.Context(), categoryID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "get_category", err)
			return
		}

		render.JSON(w, r, category)
	}
}

func UpdateCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		req := categoryRequest{}
		if !decode(w, r, &req) {
			return
		}

		category := model.Category{
			ID:          categoryID,
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   owner(r),
		}
		err := app.Categories.Update(r.Context(), &category)
		if err != nil {
			httpx.WriteError(w, r, "update_category", err)
			return
		}

		render.JSON(w, r, category)
	}
}

func DeleteCategory(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Categories.Delete(r.Context(), categoryID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "delete_category", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ListCategoryEntities(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		links, err := app.Categories.Entities(r.Context(), owner(r), categoryID)
		if err != nil {
			httpx.WriteError(w, r, "list_category_entities", err)
			return
		}

		render.JSON(w, r, links)
	}
}

func LinkEntity(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		req := linkRequest{}
		if !decode(w, r, &req) {
			return
		}
		ref, err := model.ParseEntityRef(req.EntityType, req.EntityID)
		if err != nil {
			httpx.WriteError(w, r, "link_entity", err)
			return
		}

		link := model.EntityCategory{Entity: ref, CategoryID: categoryID}
		err = app.Categories.Link(r.Context(), owner(r), &link)
		if err != nil {
			httpx.WriteError(w, r, "link_entity", err)
			return
		}

		created(w, r, link)
	}
}

func UnlinkEntity(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		entityID, ok := uuidParam(w, r, "entity_id")
		if !ok {
			return
		}
		ref, err := model.ParseEntityRef(r.URL.Query().Get("type"), entityID.String())
		if err != nil {
			httpx.WriteError(w, r, "unlink_entity", err)
			return
		}

		err = app.Categories.Unlink(r.Context(), owner(r), ref, categoryID)
		if err != nil {
			httpx.WriteError(w, r, "unlink_entity", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
