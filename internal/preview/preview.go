// Package preview serves generated documents in a sandboxed surface and
// keeps ephemeral preview handles for apps without a hosted URL.
package preview

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 24 * time.Hour

type entry struct {
	code      string
	expiresAt time.Time
}

// Registry maps ephemeral handles to document content. Handles expire
// lazily and do not survive a restart; the durable copy lives in the
// store.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{entries: make(map[string]entry), ttl: ttl}
}

// Put stores the code and returns a fresh opaque handle.
func (r *Registry) Put(code string) string {
	handle := uuid.NewString()
	r.mu.Lock()
	r.entries[handle] = entry{code: code, expiresAt: time.Now().Add(r.ttl)}
	r.mu.Unlock()
	return handle
}

// Get resolves a handle, pruning it if expired.
func (r *Registry) Get(handle string) (string, bool) {
	r.mu.RLock()
	e, ok := r.entries[handle]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		r.mu.Lock()
		delete(r.entries, handle)
		r.mu.Unlock()
		return "", false
	}
	return e.code, true
}

// Render writes htmlContent with a sandbox policy: scripts, forms, popups
// and modals are allowed, top-level navigation out of the sandbox is not.
func Render(w http.ResponseWriter, htmlContent string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", "sandbox allow-scripts allow-forms allow-popups allow-modals")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(htmlContent))
}
