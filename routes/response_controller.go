package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/httpx"
)

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		responses, err := app.Ingest.List(r.Context(), owner(r), formID)
		if err != nil {
			httpx.WriteError(w, r, "list_responses", err)
			return
		}

		render.JSON(w, r, responses)
	}
}

// SubmitResponse stores a response of the authenticated user. A private form
// of somebody else needs its password in the body.
func SubmitResponse(app app.App) http.HandlerFunc {
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

func GetResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		response, err := app.Ingest.Get(r.Context(), owner(r), responseID)
		if err != nil {
			httpx.WriteError(w, r, "get_response", err)
			return
		}

		render.JSON(w, r, response)
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Ingest.Delete(r.Context(), owner(r), responseID)
		if err != nil {
			httpx.WriteError(w, r, "delete_response", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
