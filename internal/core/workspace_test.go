package core

import (
	"context"
	"testing"
	"time"

	"github.com/jrlabs/appforge/internal/apperr"
)

func TestWorkspaceCreateAndList(t *testing.T) {
	st := newTestStore(t)
	a := NewAutosaver(st, newTestContext(t), time.Minute)
	t.Cleanup(a.Close)
	w := NewWorkspace(st, a)

	if _, err := w.CreateFile("b.html", "two"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := w.CreateFile("a.html", "one"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	if _, err := w.CreateFile("a.html", "dup"); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("duplicate name should be rejected, got %v", err)
	}
	if _, err := w.CreateFile("   ", "x"); !apperr.IsCode(err, apperr.CodeValidation) {
		t.Errorf("blank name should be rejected, got %v", err)
	}

	files := w.List()
	if len(files) != 2 || files[0].Name != "a.html" || files[1].Name != "b.html" {
		t.Fatalf("expected sorted [a.html b.html], got %+v", files)
	}
}

func TestWorkspaceUpdateRenameDelete(t *testing.T) {
	st := newTestStore(t)
	a := NewAutosaver(st, newTestContext(t), time.Minute)
	t.Cleanup(a.Close)
	w := NewWorkspace(st, a)

	if _, err := w.CreateFile("app.html", "v1"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	f, err := w.UpdateFile("app.html", "v2")
	if err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	if f.Content != "v2" {
		t.Errorf("content not updated: %q", f.Content)
	}
	if _, err := w.UpdateFile("missing.html", "x"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}

	f, err = w.RenameFile("app.html", "index.html")
	if err != nil {
		t.Fatalf("RenameFile: %v", err)
	}
	if f.Name != "index.html" {
		t.Errorf("rename not applied: %q", f.Name)
	}
	if _, err := w.Get("app.html"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Error("old name still resolves after rename")
	}
	got, err := w.Get("index.html")
	if err != nil || got.Content != "v2" {
		t.Errorf("renamed file lost content: %+v, %v", got, err)
	}

	if err := w.DeleteFile("index.html"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := w.DeleteFile("index.html"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("second delete should be not-found, got %v", err)
	}
}

func TestWorkspaceBindAdoptsAppCode(t *testing.T) {
	st := newTestStore(t)
	a := NewAutosaver(st, newTestContext(t), time.Minute)
	t.Cleanup(a.Close)
	w := NewWorkspace(st, a)
	app := createApp(t, st, "bound")

	if _, err := w.CreateFile("app.html", ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	f, err := w.Bind(context.Background(), "app.html", app.ID)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if f.AppID != app.ID {
		t.Errorf("binding not recorded: %q", f.AppID)
	}
	if f.Content != testDoc {
		t.Error("empty file should adopt the app's code on bind")
	}

	if _, err := w.Bind(context.Background(), "app.html", "no-such-app"); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("binding to an unknown app must fail, got %v", err)
	}
}

func TestWorkspaceBoundEditTriggersAutosave(t *testing.T) {
	st := newTestStore(t)
	a := NewAutosaver(st, newTestContext(t), 20*time.Millisecond)
	t.Cleanup(a.Close)
	w := NewWorkspace(st, a)
	app := createApp(t, st, "live")

	if _, err := w.CreateFile("app.html", ""); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := w.Bind(context.Background(), "app.html", app.ID); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if _, err := w.UpdateFile("app.html", testDoc+"<!-- edited -->"); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	a.Flush()

	got, err := st.Get(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Version != 2 || got.Code != testDoc+"<!-- edited -->" {
		t.Fatalf("bound edit not autosaved: v%d %q", got.Version, got.Code)
	}
}

func TestWorkspaceUnboundEditNeverAutosaves(t *testing.T) {
	st := newTestStore(t)
	a := NewAutosaver(st, newTestContext(t), 20*time.Millisecond)
	t.Cleanup(a.Close)
	w := NewWorkspace(st, a)
	app := createApp(t, st, "untouched")

	// Same name as the app is irrelevant; only an explicit binding counts.
	if _, err := w.CreateFile("untouched", "scratch content"); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	if _, err := w.UpdateFile("untouched", "more scratch"); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	a.Flush()

	got, _ := st.Get(context.Background(), app.ID)
	if got.Version != 1 {
		t.Fatalf("unbound edit reached the store: v%d", got.Version)
	}
}
