// Package store persists Apps and their append-only Version history.
//
// Two backends implement the same AppStore contract: an embedded SQLite
// store and a Postgres store. Callers never branch on which one is active.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jrlabs/appforge/internal/apperr"
)

var (
	errEmptyCode = apperr.Validation("app code must not be empty")
	errNotHTML   = apperr.Validation("app code is not an HTML document")
)

// AppStore is the persistence and versioning contract for Apps.
//
// Invariants every implementation must hold:
//   - App.Version always equals the version of its newest Version record.
//   - Version numbering per App is gapless: the Nth record has version N.
//   - The App row and its Version record are committed in one transaction.
//   - Updates to a single App are serialized; different Apps are independent.
type AppStore interface {
	Create(ctx context.Context, draft AppDraft) (*App, error)
	Update(ctx context.Context, id, newCode, note string) (*App, error)
	Get(ctx context.Context, id string) (*App, error)
	List(ctx context.Context, filter Filter, s Sort) ([]App, error)
	// Delete removes the App and all its Versions. Deleting an unknown id
	// is a no-op.
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (*App, error)
	IncrementViews(ctx context.Context, id string) (*App, error)
	ListVersions(ctx context.Context, appID string) ([]Version, error)
	// RestoreVersion appends a new Version carrying the snapshot's code.
	// History is never rewritten.
	RestoreVersion(ctx context.Context, appID, versionID string) (*App, error)

	GetSettings(ctx context.Context) (*Settings, error)
	PutSettings(ctx context.Context, s Settings) error

	Close() error
}

const (
	initialVersionNote = "Initial version"
	settingsKey        = "settings"
)

func defaultUpdateNote(version int) string {
	return fmt.Sprintf("Updated to v%d", version)
}

func restoreNote(version int) string {
	return fmt.Sprintf("Restored v%d", version)
}

// validateDraft applies the create-time checks shared by both backends.
func validateDraft(draft *AppDraft) error {
	code := strings.TrimSpace(draft.Code)
	if code == "" {
		return errEmptyCode
	}
	lower := strings.ToLower(code)
	if !strings.Contains(lower, "<!doctype") && !strings.Contains(lower, "<html") {
		return errNotHTML
	}
	if draft.Note == "" {
		draft.Note = initialVersionNote
	}
	return nil
}

// Project applies filter and sort to a snapshot of Apps. It is a pure
// function: the input slice and the stored records are never mutated, which
// keeps List semantics identical across backends.
func Project(apps []App, filter Filter, s Sort) []App {
	out := make([]App, 0, len(apps))
	needle := strings.ToLower(strings.TrimSpace(filter.SearchText))
	for _, a := range apps {
		if filter.FavoritesOnly && !a.Favorite {
			continue
		}
		if needle != "" && !matchesSearch(a, needle) {
			continue
		}
		out = append(out, a)
	}

	by := s.By
	if by == "" {
		by = SortByDate
	}
	// compare returns >0 when a ranks above b in descending order. Ties fall
	// through to the stable input order (created_at desc from the backends).
	compare := func(a, b App) int {
		switch by {
		case SortByName:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByViews:
			return a.ViewCount - b.ViewCount
		default: // SortByDate
			return a.UpdatedAt.Compare(b.UpdatedAt)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j])
		if s.Ascending {
			return c < 0
		}
		return c > 0
	})
	return out
}

func matchesSearch(a App, needle string) bool {
	if strings.Contains(strings.ToLower(a.Name), needle) ||
		strings.Contains(strings.ToLower(a.Title), needle) {
		return true
	}
	return a.Prompt != nil && strings.Contains(strings.ToLower(*a.Prompt), needle)
}

// keyedLocks serializes mutations per App id. The store is the only shared
// mutable resource, so this is the single critical section in the system.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for id and returns the unlock func.
func (k *keyedLocks) acquire(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
