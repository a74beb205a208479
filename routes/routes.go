package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/formify/app"
	"github.com/mbolis/formify/routes/middlewares"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RealIP, middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.TokenParam, middlewares.OptionalAuth(app.TokenSecret)).
		Method(http.MethodGet, "/ws/reports/{form_id}", LiveReports(app))

	root.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.OptionalAuth(app.TokenSecret))

		r.Get("/public/forms", ListPublicForms(app))
		r.Get("/public/forms/{id}", PublicGetForm(app))
		r.Post("/public/forms/{id}/submit", PublicSubmitForm(app))
		r.Get("/public/processes", ListPublicProcesses(app))
		r.Post("/private/forms/validate", ValidateAccess(app))

		r.Get("/workflow/process-steps", ProcessSteps(app))
		r.Get("/workflow/current-step", CurrentStep(app))
		r.Post("/workflow/complete-step", CompleteStep(app))
		r.Get("/workflow/progress", ProcessProgress(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.TokenSecret))

		r.Get("/me", Me(app))

		r.Get("/field-types", FieldTypes)
		r.Get("/process-types", ProcessTypes)

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetForm(app))
		r.Put("/forms/{id}", UpdateForm(app))
		r.Delete("/forms/{id}", DeleteForm(app))

		r.Post("/forms/{id}/fields", CreateField(app))
		r.Get("/forms/{id}/fields", ListFields(app))
		r.Get("/fields/{id}", GetField(app))
		r.Patch("/fields/{id}", UpdateField(app))
		r.Delete("/fields/{id}", DeleteField(app))
		r.Post("/fields/{id}/reorder", ReorderField(app))

		r.Get("/forms/{id}/responses", ListResponses(app))
		r.Post("/forms/{id}/responses", SubmitResponse(app))
		r.Get("/responses/{id}", GetResponse(app))
		r.Delete("/responses/{id}", DeleteResponse(app))

		r.Get("/forms/{id}/report", FormReport(app))

		// CRUD process
		r.Post("/processes", CreateProcess(app))
		r.Get("/processes", ListProcesses(app))
		r.Get("/processes/{id}", GetProcess(app))
		r.Put("/processes/{id}", UpdateProcess(app))
		r.Delete("/processes/{id}", DeleteProcess(app))

		r.Post("/processes/{id}/steps", CreateStep(app))
		r.Get("/steps/{id}", GetStep(app))
		r.Patch("/steps/{id}", UpdateStep(app))
		r.Delete("/steps/{id}", DeleteStep(app))
		r.Post("/steps/{id}/reorder", ReorderStep(app))

		r.Post("/reports", CreateReport(app))
		r.Get("/reports", ListReports(app))
		r.Get(`/reports/{id:^\d+$}`, GetReport(app))
		r.Delete(`/reports/{id:^\d+$}`, DeleteReport(app))
		r.Get(`/reports/{id:^\d+$}/generate`, GenerateReport(app))
		r.Post(`/reports/{id:^\d+$}/run`, RunReport(app))

		r.Post("/categories", CreateCategory(app))
		r.Get("/categories", ListCategories(app))
		r.Get(`/categories/{id:^\d+$}`, GetCategory(app))
		r.Put(`/categories/{id:^\d+$}`, UpdateCategory(app))
		r.Delete(`/categories/{id:^\d+$}`, DeleteCategory(app))
		r.Get(`/categories/{id:^\d+$}/entities`, ListCategoryEntities(app))
		r.Post(`/categories/{id:^\d+$}/entities`, LinkEntity(app))
		r.Delete(`/categories/{id:^\d+$}/entities/{entity_id}`, UnlinkEntity(app))
	})

	return api
}
