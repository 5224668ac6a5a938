package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jrlabs/appforge/internal/appctx"
	"github.com/jrlabs/appforge/internal/apperr"
	"github.com/jrlabs/appforge/internal/core"
	"github.com/jrlabs/appforge/internal/generate"
	"github.com/jrlabs/appforge/internal/logger"
	"github.com/jrlabs/appforge/internal/preview"
	"github.com/jrlabs/appforge/internal/share"
	"github.com/jrlabs/appforge/internal/store"
)

type APIHandler struct {
	builder   *core.BuilderService
	store     store.AppStore
	workspace *core.Workspace
	autosaver *core.Autosaver
	previews  *preview.Registry
	models    generate.ModelLister // nil when no catalog provider is configured
	actx      *appctx.AppContext

	shareSecret string
	shareTTL    time.Duration
}

func NewAPIHandler(builder *core.BuilderService, st store.AppStore, ws *core.Workspace, as *core.Autosaver, previews *preview.Registry, models generate.ModelLister, actx *appctx.AppContext, shareSecret string, shareTTL time.Duration) *APIHandler {
	return &APIHandler{
		builder:     builder,
		store:       st,
		workspace:   ws,
		autosaver:   as,
		previews:    previews,
		models:      models,
		actx:        actx,
		shareSecret: shareSecret,
		shareTTL:    shareTTL,
	}
}

// ---- apps ----

type GenerateAppRequest struct {
	Prompt string `json:"prompt"`
	Name   string `json:"name,omitempty"`
	Title  string `json:"title,omitempty"`
	Model  string `json:"model,omitempty"`
}

func (h *APIHandler) GenerateAppHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}

	app, err := h.builder.GenerateApp(r.Context(), core.GenerateRequest{
		Prompt: req.Prompt,
		Name:   req.Name,
		Title:  req.Title,
		Model:  req.Model,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, app)
}

func (h *APIHandler) ListAppsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.Filter{
		FavoritesOnly: q.Get("favorites") == "true",
		SearchText:    q.Get("q"),
	}
	srt := store.Sort{
		By:        store.SortBy(q.Get("sort")),
		Ascending: q.Get("order") == "asc",
	}

	apps, err := h.store.List(r.Context(), filter, srt)
	if err != nil {
		respondError(w, err)
		return
	}
	if apps == nil {
		apps = []store.App{}
	}
	respondJSON(w, http.StatusOK, apps)
}

func (h *APIHandler) GetAppHandler(w http.ResponseWriter, r *http.Request) {
	app, err := h.store.Get(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

type UpdateCodeRequest struct {
	Code string `json:"code"`
	Note string `json:"note,omitempty"`
}

func (h *APIHandler) UpdateCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}

	app, err := h.builder.SaveCode(r.Context(), chi.URLParam(r, "appID"), req.Code, req.Note)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

type AutosaveRequest struct {
	Code string `json:"code"`
}

// AutosaveHandler schedules a debounced commit. It answers immediately;
// the commit happens after the quiet period, and its failures are logged
// rather than surfaced.
func (h *APIHandler) AutosaveHandler(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")

	var req AutosaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}

	// Only persisted apps are autosave targets.
	if _, err := h.store.Get(r.Context(), appID); err != nil {
		respondError(w, err)
		return
	}

	h.autosaver.Schedule(appID, req.Code)
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (h *APIHandler) DeleteAppHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "appID")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ToggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	app, err := h.store.ToggleFavorite(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, app)
}

func (h *APIHandler) LaunchHandler(w http.ResponseWriter, r *http.Request) {
	url, err := h.builder.Launch(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// ---- versions ----

func (h *APIHandler) ListVersionsHandler(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	versions, err := h.store.ListVersions(r.Context(), appID)
	if err != nil {
		respondError(w, err)
		return
	}
	if versions == nil {
		versions = []store.Version{}
	}
	respondJSON(w, http.StatusOK, versions)
}

func (h *APIHandler) RestoreVersionHandler(w http.ResponseWriter, r *http.Request) {
	app, err := h.store.RestoreVersion(r.Context(), chi.URLParam(r, "appID"), chi.URLParam(r, "versionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	h.actx.Log("Restored %s to v%d", app.Name, app.Version)
	respondJSON(w, http.StatusOK, app)
}

// ---- share ----

type ShareRequest struct {
	TTLSeconds int `json:"ttl_seconds,omitempty"`
}

func (h *APIHandler) ShareHandler(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appID")
	if _, err := h.store.Get(r.Context(), appID); err != nil {
		respondError(w, err)
		return
	}

	var req ShareRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
			return
		}
	}
	ttl := h.shareTTL
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token, err := share.GenerateToken(h.shareSecret, appID, ttl)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"url":        "/share/" + token,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}

func (h *APIHandler) ShareViewHandler(w http.ResponseWriter, r *http.Request) {
	appID, err := share.ValidateToken(h.shareSecret, chi.URLParam(r, "token"))
	if err != nil {
		http.Error(w, "Invalid or expired share link", http.StatusForbidden)
		return
	}
	app, err := h.store.Get(r.Context(), appID)
	if err != nil {
		http.Error(w, "App not found", http.StatusNotFound)
		return
	}
	preview.Render(w, app.Code)
}

// ---- preview ----

func (h *APIHandler) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	code, ok := h.previews.Get(chi.URLParam(r, "handle"))
	if !ok {
		http.Error(w, "Preview not found or expired", http.StatusNotFound)
		return
	}
	preview.Render(w, code)
}

// ---- export / import ----

func (h *APIHandler) ExportAllHandler(w http.ResponseWriter, r *http.Request) {
	apps, err := core.ExportApps(r.Context(), h.store)
	if err != nil {
		respondError(w, err)
		return
	}
	if apps == nil {
		apps = []store.App{}
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="apps-export-%d.json"`, time.Now().Unix()))
	respondJSON(w, http.StatusOK, apps)
	h.actx.Log("Exported %d app(s)", len(apps))
}

func (h *APIHandler) ExportAppHandler(w http.ResponseWriter, r *http.Request) {
	app, err := h.store.Get(r.Context(), chi.URLParam(r, "appID"))
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, app.Name))
	respondJSON(w, http.StatusOK, []*store.App{app})
}

func (h *APIHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "failed to read import body"))
		return
	}

	imported, err := core.ImportApps(r.Context(), h.store, raw)
	if err != nil {
		respondError(w, err)
		return
	}
	h.actx.Log("Imported %d app(s)", imported)
	respondJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

// ---- models / settings / templates / logs ----

// ModelsHandler returns the provider catalog. Transport and parse
// failures degrade to an empty list; a broken catalog never breaks the UI.
func (h *APIHandler) ModelsHandler(w http.ResponseWriter, r *http.Request) {
	models := []generate.ModelInfo{}
	if h.models != nil {
		listed, err := h.models.ListModels(r.Context())
		if err != nil {
			logger.L().Warn("model catalog unavailable", zap.Error(err))
		} else {
			models = listed
		}
	}
	respondJSON(w, http.StatusOK, models)
}

func (h *APIHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *APIHandler) PutSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}
	if err := h.store.PutSettings(r.Context(), settings); err != nil {
		respondError(w, err)
		return
	}
	h.actx.SetSettings(settings)
	h.actx.Log("Settings saved")
	respondJSON(w, http.StatusOK, settings)
}

func (h *APIHandler) TemplatesHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, core.ListTemplates())
}

func (h *APIHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	respondJSON(w, http.StatusOK, h.actx.Recent(limit))
}

// ---- workspace files ----

type FileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (h *APIHandler) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workspace.List())
}

func (h *APIHandler) CreateFileHandler(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}
	f, err := h.workspace.CreateFile(req.Name, req.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

func (h *APIHandler) UpdateFileHandler(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}
	f, err := h.workspace.UpdateFile(chi.URLParam(r, "name"), req.Content)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

func (h *APIHandler) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace.DeleteFile(chi.URLParam(r, "name")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RenameFileRequest struct {
	Name string `json:"name"`
}

func (h *APIHandler) RenameFileHandler(w http.ResponseWriter, r *http.Request) {
	var req RenameFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}
	f, err := h.workspace.RenameFile(chi.URLParam(r, "name"), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

type BindFileRequest struct {
	AppID string `json:"app_id"`
}

func (h *APIHandler) BindFileHandler(w http.ResponseWriter, r *http.Request) {
	var req BindFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, apperr.Wrap(err, apperr.CodeValidation, "invalid request body"))
		return
	}
	f, err := h.workspace.Bind(r.Context(), chi.URLParam(r, "name"), req.AppID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}
