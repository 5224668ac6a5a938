package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every endpoint onto a chi router.
func NewRouter(h *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/apps", func(r chi.Router) {
		r.Post("/", h.GenerateAppHandler)
		r.Get("/", h.ListAppsHandler)
		r.Get("/export", h.ExportAllHandler)
		r.Post("/import", h.ImportHandler)

		r.Route("/{appID}", func(r chi.Router) {
			r.Get("/", h.GetAppHandler)
			r.Put("/code", h.UpdateCodeHandler)
			r.Post("/autosave", h.AutosaveHandler)
			r.Delete("/", h.DeleteAppHandler)
			r.Post("/favorite", h.ToggleFavoriteHandler)
			r.Post("/launch", h.LaunchHandler)
			r.Get("/versions", h.ListVersionsHandler)
			r.Post("/versions/{versionID}/restore", h.RestoreVersionHandler)
			r.Post("/share", h.ShareHandler)
			r.Get("/export", h.ExportAppHandler)
		})
	})

	r.Route("/api/files", func(r chi.Router) {
		r.Get("/", h.ListFilesHandler)
		r.Post("/", h.CreateFileHandler)
		r.Put("/{name}", h.UpdateFileHandler)
		r.Put("/{name}/rename", h.RenameFileHandler)
		r.Put("/{name}/bind", h.BindFileHandler)
		r.Delete("/{name}", h.DeleteFileHandler)
	})

	r.Get("/api/models", h.ModelsHandler)
	r.Get("/api/settings", h.GetSettingsHandler)
	r.Put("/api/settings", h.PutSettingsHandler)
	r.Get("/api/templates", h.TemplatesHandler)
	r.Get("/api/logs", h.LogsHandler)
	r.Get("/api/logs/ws", h.LogsWSHandler)

	r.Get("/preview/{handle}", h.PreviewHandler)
	r.Get("/share/{token}", h.ShareViewHandler)

	return r
}
