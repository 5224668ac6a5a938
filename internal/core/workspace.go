package core

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jrlabs/appforge/internal/apperr"
	"github.com/jrlabs/appforge/internal/store"
)

// File is an editor-scoped document. Files live only for the session; a
// file bound to an App id is the app's deployable entry point and the
// autosave target. Binding is always by stored id, never reconstructed
// from the filename.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	AppID   string `json:"app_id,omitempty"`
}

// Workspace holds the session's files.
type Workspace struct {
	store     store.AppStore
	autosaver *Autosaver

	mu    sync.RWMutex
	files map[string]*File
}

func NewWorkspace(st store.AppStore, autosaver *Autosaver) *Workspace {
	return &Workspace{
		store:     st,
		autosaver: autosaver,
		files:     make(map[string]*File),
	}
}

func validFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("filename must not be empty")
	}
	return name, nil
}

func (w *Workspace) CreateFile(name, content string) (*File, error) {
	name, err := validFilename(name)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.files[name]; exists {
		return nil, apperr.Newf(apperr.CodeValidation, "duplicate filename %q", name)
	}
	f := &File{Name: name, Content: content}
	w.files[name] = f
	cp := *f
	return &cp, nil
}

// UpdateFile replaces a file's content. If the file is bound to an app,
// the edit is handed to the autosaver for a debounced commit.
func (w *Workspace) UpdateFile(name, content string) (*File, error) {
	w.mu.Lock()
	f, ok := w.files[name]
	if !ok {
		w.mu.Unlock()
		return nil, apperr.Newf(apperr.CodeNotFound, "file %q not found", name)
	}
	f.Content = content
	cp := *f
	w.mu.Unlock()

	if cp.AppID != "" {
		w.autosaver.Schedule(cp.AppID, content)
	}
	return &cp, nil
}

func (w *Workspace) RenameFile(oldName, newName string) (*File, error) {
	newName, err := validFilename(newName)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.files[oldName]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "file %q not found", oldName)
	}
	if _, exists := w.files[newName]; exists && newName != oldName {
		return nil, apperr.Newf(apperr.CodeValidation, "duplicate filename %q", newName)
	}
	delete(w.files, oldName)
	f.Name = newName
	w.files[newName] = f
	cp := *f
	return &cp, nil
}

func (w *Workspace) DeleteFile(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[name]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "file %q not found", name)
	}
	delete(w.files, name)
	return nil
}

// Bind attaches a file to a persisted app, making it the autosave target.
// The app must exist; a dangling binding would send autosaves nowhere.
func (w *Workspace) Bind(ctx context.Context, name, appID string) (*File, error) {
	app, err := w.store.Get(ctx, appID)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.files[name]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "file %q not found", name)
	}
	f.AppID = app.ID
	if f.Content == "" {
		f.Content = app.Code
	}
	cp := *f
	return &cp, nil
}

func (w *Workspace) Get(name string) (*File, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.files[name]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "file %q not found", name)
	}
	cp := *f
	return &cp, nil
}

func (w *Workspace) List() []File {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]File, 0, len(w.files))
	for _, f := range w.files {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
