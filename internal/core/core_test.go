package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrlabs/appforge/internal/appctx"
	"github.com/jrlabs/appforge/internal/generate"
	"github.com/jrlabs/appforge/internal/store"
)

const testDoc = "<!DOCTYPE html><html><body>hello</body></html>"

func newTestStore(t *testing.T) store.AppStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestContext(t *testing.T) *appctx.AppContext {
	t.Helper()
	actx := appctx.New(50)
	t.Cleanup(actx.Close)
	return actx
}

func createApp(t *testing.T, st store.AppStore, name string) *store.App {
	t.Helper()
	app, err := st.Create(context.Background(), store.AppDraft{Name: name, Code: testDoc})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return app
}

// fakeGenerator is a canned provider for pipeline tests.
type fakeGenerator struct {
	out string
	err error
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, system, prompt string, opts generate.Options) (string, error) {
	return f.out, f.err
}

// fakePublisher records publishes and can be told to fail.
type fakePublisher struct {
	url  string
	err  error
	seen []string
}

func (f *fakePublisher) Publish(ctx context.Context, name, content string) (string, error) {
	f.seen = append(f.seen, name)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}
