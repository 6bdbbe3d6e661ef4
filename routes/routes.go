package routes

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.RealIP, httpx.RequestLogger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	if strings.HasPrefix(app.UploadBaseURL, "/") {
		root.Mount(app.UploadBaseURL, serveUploads(app))
	}
	root.
		With(middlewares.CookieAuth(app.BearerServer), requireAuthor(app)).
		Mount("/admin", servePrivateFiles(app, "/admin"))
	root.Mount("/", servePublicFiles(app))

	return root
}

func requireAuthor(app app.App) func(http.Handler) http.Handler {
	return middlewares.RequireRole(app.TokenSecret, database.RoleAdmin, database.RolePresident)
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Group(func(r chi.Router) {
		r.Use(httpx.RateLimit(app.RateLimit))

		r.Get("/forms/{id}", PublicGetFormById(app))
		r.Post("/forms/{id}/responses", PublicSubmitForm(app))
		r.Post("/forms/{id}/uploads", PublicUploadImage(app))

		r.Post("/login", Login(app))
		r.Post("/refresh", Refresh(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(requireAuthor(app))

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get("/forms/{id}", GetFormById(app))
		r.Put("/forms/{id}", UpdateForm(app))
		r.Delete("/forms/{id}", DeleteForm(app))
		r.Put("/forms/{id}/accepting", SetAcceptingResponses(app))

		// field editing
		r.Post("/forms/{id}/fields", AddField(app))
		r.Patch(`/forms/{id}/fields/{index:^\d+$}`, UpdateField(app))
		r.Post(`/forms/{id}/fields/{index:^\d+$}/move`, MoveField(app))
		r.Put(`/forms/{id}/fields/{index:^\d+$}/type`, SetFieldType(app))
		r.Delete(`/forms/{id}/fields/{index:^\d+$}`, DeleteField(app))

		// rich content images
		r.Post("/forms/{id}/images", InsertFormImage(app))
		r.Delete("/forms/{id}/images", RemoveFormImage(app))

		r.Get("/forms/{id}/responses", GetFormResponses(app))
		r.Post("/uploads", UploadFormImage(app))
	})

	return api
}

func serveUploads(app app.App) http.Handler {
	return http.StripPrefix(app.UploadBaseURL, http.FileServer(http.Dir(app.UploadDir)))
}

func servePublicFiles(app app.App) http.Handler {
	return http.FileServer(http.Dir(filepath.Join(app.StaticDir, "public")))
}

func servePrivateFiles(app app.App, path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir(filepath.Join(app.StaticDir, "private"))))
}
