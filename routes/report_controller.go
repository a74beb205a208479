package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/live"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/routes/middlewares"
)

func CreateReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := reportRequest{}
		if !decode(w, r, &req) {
			return
		}

		report := model.Report{
			FormID:         uuid.MustParse(req.FormID),
			Type:           model.ReportType(req.Type),
			ScheduleType:   model.ScheduleType(req.ScheduleType),
			DeliveryMethod: req.DeliveryMethod,
			CreatedBy:      owner(r),
			IsActive:       boolOr(req.IsActive, true),
		}
		err := app.Reports.Create(r.Context(), &report)
		if err != nil {
			httpx.WriteError(w, r, "create_report", err)
			return
		}

		created(w, r, report)
	}
}

func ListReports(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := app.Reports.List(r.Context(), owner(r))
		if err != nil {
			httpx.WriteError(w, r, "list_reports", err)
			return
		}

		render.JSON(w, r, reports)
	}
}

func GetReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		report, err := app.Reports.Get(r.Context(), reportID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "get_report", err)
			return
		}

		render.JSON(w, r, report)
	}
}

func DeleteReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		err := app.Reports.Delete(r.Context(), reportID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "delete_report", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// GenerateReport builds the payload of a stored report definition without
// delivering it.
func GenerateReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		report, err := app.Reports.Get(r.Context(), reportID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "generate_report", err)
			return
		}
		payload, err := app.Builder.Generate(r.Context(), report.FormID, report.Type)
		if err != nil {
			httpx.WriteError(w, r, "generate_report", err)
			return
		}

		render.JSON(w, r, payload)
	}
}

// RunReport generates the report and delivers it right away.
func RunReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID, ok := intParam(w, r, "id")
		if !ok {
			return
		}

		report, err := app.Reports.Get(r.Context(), reportID, owner(r))
		if err != nil {
			httpx.WriteError(w, r, "run_report", err)
			return
		}
		run, err := app.Scheduler.RunOnce(r.Context(), report)
		if err != nil {
			httpx.WriteError(w, r, "run_report", err)
			return
		}

		render.JSON(w, r, run)
	}
}

// FormReport builds a report of an owned form on the fly.
func FormReport(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formID, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		typ := model.ReportType(strings.ToLower(r.URL.Query().Get("type")))
		if typ == "" {
			typ = model.ReportSummary
		}

		if _, err := app.Forms.Get(r.Context(), formID, owner(r)); err != nil {
			httpx.WriteError(w, r, "generate_report", err)
			return
		}
		payload, err := app.Builder.Generate(r.Context(), formID, typ)
		if err != nil {
			httpx.WriteError(w, r, "generate_report", err)
			return
		}

		render.JSON(w, r, payload)
	}
}

// LiveReports upgrades to the websocket report channel of a form.
func LiveReports(app app.App) http.Handler {
	return live.NewHandler(app.DB, app.Hub, app.Builder, viewer)
}

func viewer(r *http.Request) live.Viewer {
	id, ok := middlewares.UserID(r)
	return live.Viewer{
		UserID:        id,
		IsStaff:       ok && middlewares.HasRole(r, httpx.RoleStaff),
		Authenticated: ok,
	}
}
