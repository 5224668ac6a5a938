package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jrlabs/appforge/internal/appctx"
	"github.com/jrlabs/appforge/internal/core"
	"github.com/jrlabs/appforge/internal/generate"
	"github.com/jrlabs/appforge/internal/preview"
	"github.com/jrlabs/appforge/internal/store"
)

const testDoc = "<!DOCTYPE html><html><body>hello</body></html>"

type stubGenerator struct {
	out string
	err error
}

func (s *stubGenerator) Name() string { return "stub" }

func (s *stubGenerator) Generate(ctx context.Context, system, prompt string, opts generate.Options) (string, error) {
	return s.out, s.err
}

type stubPublisher struct{ url string }

func (s *stubPublisher) Publish(ctx context.Context, name, content string) (string, error) {
	return s.url, nil
}

type stubModelLister struct{ models []generate.ModelInfo }

func (s *stubModelLister) ListModels(ctx context.Context) ([]generate.ModelInfo, error) {
	return s.models, nil
}

type testEnv struct {
	srv   *httptest.Server
	store store.AppStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	actx := appctx.New(50)
	t.Cleanup(actx.Close)
	previews := preview.NewRegistry(time.Minute)
	autosaver := core.NewAutosaver(st, actx, 20*time.Millisecond)
	t.Cleanup(autosaver.Close)
	workspace := core.NewWorkspace(st, autosaver)
	builder := core.NewBuilderService(st, &stubGenerator{out: testDoc}, &stubPublisher{url: "https://apps.example.com/x"}, previews, actx, time.Second)

	lister := &stubModelLister{models: []generate.ModelInfo{{ID: "openai-large", Name: "openai-large", Provider: "Pollinations"}}}
	h := NewAPIHandler(builder, st, workspace, autosaver, previews, lister, actx, "test-secret", time.Hour)

	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out bytes.Buffer
	out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func (e *testEnv) createApp(t *testing.T, name string) store.App {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/apps", map[string]string{"prompt": "make " + name, "name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate: status %d: %s", resp.StatusCode, body)
	}
	var app store.App
	if err := json.Unmarshal(body, &app); err != nil {
		t.Fatalf("decode app: %v", err)
	}
	return app
}

func TestGenerateEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createApp(t, "todo")
	if app.ID == "" || app.Version != 1 {
		t.Fatalf("unexpected app: %+v", app)
	}
	if app.Code != testDoc {
		t.Errorf("unexpected code: %q", app.Code)
	}

	resp, _ := e.do(t, http.MethodPost, "/api/apps", map[string]string{"prompt": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty prompt: expected 400, got %d", resp.StatusCode)
	}
}

func TestListEndpointFilters(t *testing.T) {
	e := newTestEnv(t)
	a := e.createApp(t, "alpha")
	e.createApp(t, "beta")

	resp, _ := e.do(t, http.MethodPost, "/api/apps/"+a.ID+"/favorite", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("favorite: status %d", resp.StatusCode)
	}

	var apps []store.App
	_, body := e.do(t, http.MethodGet, "/api/apps?favorites=true", nil)
	json.Unmarshal(body, &apps)
	if len(apps) != 1 || apps[0].ID != a.ID {
		t.Fatalf("favorites filter: %+v", apps)
	}

	_, body = e.do(t, http.MethodGet, "/api/apps?q=BETA", nil)
	json.Unmarshal(body, &apps)
	if len(apps) != 1 || apps[0].Name != "beta" {
		t.Fatalf("search filter: %+v", apps)
	}

	_, body = e.do(t, http.MethodGet, "/api/apps?sort=name&order=asc", nil)
	json.Unmarshal(body, &apps)
	if len(apps) != 2 || apps[0].Name != "alpha" {
		t.Fatalf("name sort: %+v", apps)
	}
}

func TestAppLifecycleEndpoints(t *testing.T) {
	e := newTestEnv(t)
	app := e.createApp(t, "cycle")

	resp, body := e.do(t, http.MethodPut, "/api/apps/"+app.ID+"/code", map[string]string{"code": testDoc + "<!-- v2 -->"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update code: status %d: %s", resp.StatusCode, body)
	}
	var updated store.App
	json.Unmarshal(body, &updated)
	if updated.Version != 2 {
		t.Fatalf("expected v2, got v%d", updated.Version)
	}

	var versions []store.Version
	_, body = e.do(t, http.MethodGet, "/api/apps/"+app.ID+"/versions", nil)
	json.Unmarshal(body, &versions)
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}

	v1 := versions[len(versions)-1]
	resp, body = e.do(t, http.MethodPost, fmt.Sprintf("/api/apps/%s/versions/%s/restore", app.ID, v1.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restore: status %d: %s", resp.StatusCode, body)
	}
	var restored store.App
	json.Unmarshal(body, &restored)
	if restored.Version != 3 || restored.Code != v1.Code {
		t.Fatalf("restore mismatch: %+v", restored)
	}

	resp, _ = e.do(t, http.MethodDelete, "/api/apps/"+app.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodGet, "/api/apps/"+app.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", resp.StatusCode)
	}
	// Idempotent.
	resp, _ = e.do(t, http.MethodDelete, "/api/apps/"+app.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("repeat delete: status %d", resp.StatusCode)
	}
}

func TestAutosaveEndpoint(t *testing.T) {
	e := newTestEnv(t)
	app := e.createApp(t, "auto")

	resp, body := e.do(t, http.MethodPost, "/api/apps/"+app.ID+"/autosave", map[string]string{"code": testDoc + "<!-- draft -->"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("autosave: status %d: %s", resp.StatusCode, body)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/apps/no-such-app/autosave", map[string]string{"code": testDoc})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("autosave for unknown app: status %d", resp.StatusCode)
	}
}

func TestShareEndpoints(t *testing.T) {
	e := newTestEnv(t)
	app := e.createApp(t, "shared")

	resp, body := e.do(t, http.MethodPost, "/api/apps/"+app.ID+"/share", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("share: status %d: %s", resp.StatusCode, body)
	}
	var link struct {
		URL string `json:"url"`
	}
	json.Unmarshal(body, &link)
	if !strings.HasPrefix(link.URL, "/share/") {
		t.Fatalf("unexpected share url: %q", link.URL)
	}

	resp, body = e.do(t, http.MethodGet, link.URL, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("share view: status %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "hello") {
		t.Errorf("share view body missing app content")
	}

	resp, _ = e.do(t, http.MethodGet, "/share/garbage-token", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad token: status %d", resp.StatusCode)
	}
}

func TestExportImportEndpoints(t *testing.T) {
	e := newTestEnv(t)
	e.createApp(t, "exported")

	resp, body := e.do(t, http.MethodGet, "/api/apps/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("export missing attachment disposition: %q", cd)
	}

	other := newTestEnv(t)
	req, _ := http.NewRequest(http.MethodPost, other.srv.URL+"/api/apps/import", bytes.NewReader(body))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	defer resp2.Body.Close()
	var result map[string]int
	json.NewDecoder(resp2.Body).Decode(&result)
	if result["imported"] != 1 {
		t.Fatalf("expected 1 imported, got %v", result)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPut, "/api/settings", store.Settings{Model: "mistral", Theme: "dark"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put settings: status %d: %s", resp.StatusCode, body)
	}

	var got store.Settings
	_, body = e.do(t, http.MethodGet, "/api/settings", nil)
	json.Unmarshal(body, &got)
	if got.Model != "mistral" || got.Theme != "dark" {
		t.Fatalf("settings round trip: %+v", got)
	}
}

func TestCatalogAndTemplatesEndpoints(t *testing.T) {
	e := newTestEnv(t)

	var models []generate.ModelInfo
	_, body := e.do(t, http.MethodGet, "/api/models", nil)
	json.Unmarshal(body, &models)
	if len(models) != 1 || models[0].ID != "openai-large" {
		t.Fatalf("models: %+v", models)
	}

	var templates []core.Template
	_, body = e.do(t, http.MethodGet, "/api/templates", nil)
	json.Unmarshal(body, &templates)
	if len(templates) == 0 {
		t.Fatal("expected canned templates")
	}
}

func TestLogsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.createApp(t, "noisy")

	var entries []appctx.Entry
	_, body := e.do(t, http.MethodGet, "/api/logs?limit=5", nil)
	json.Unmarshal(body, &entries)
	if len(entries) == 0 {
		t.Fatal("expected activity entries after a generation")
	}
}

func TestFileEndpoints(t *testing.T) {
	e := newTestEnv(t)
	app := e.createApp(t, "filer")

	resp, _ := e.do(t, http.MethodPost, "/api/files", map[string]string{"name": "app.html", "content": ""})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create file: status %d", resp.StatusCode)
	}

	resp, body := e.do(t, http.MethodPut, "/api/files/app.html/bind", map[string]string{"app_id": app.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bind: status %d: %s", resp.StatusCode, body)
	}
	var f core.File
	json.Unmarshal(body, &f)
	if f.AppID != app.ID || f.Content != testDoc {
		t.Fatalf("bind result: %+v", f)
	}

	resp, _ = e.do(t, http.MethodPut, "/api/files/app.html/rename", map[string]string{"name": "index.html"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: status %d", resp.StatusCode)
	}

	var files []core.File
	_, body = e.do(t, http.MethodGet, "/api/files", nil)
	json.Unmarshal(body, &files)
	if len(files) != 1 || files[0].Name != "index.html" {
		t.Fatalf("list files: %+v", files)
	}

	resp, _ = e.do(t, http.MethodDelete, "/api/files/index.html", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete file: status %d", resp.StatusCode)
	}
}

func TestPreviewEndpointMiss(t *testing.T) {
	e := newTestEnv(t)
	resp, _ := e.do(t, http.MethodGet, "/preview/no-such-handle", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
