package core

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jrlabs/appforge/internal/appctx"
	"github.com/jrlabs/appforge/internal/logger"
	"github.com/jrlabs/appforge/internal/store"
)

// Autosaver debounces edit commits per app: each Schedule call restarts
// the quiet-period timer and replaces the pending content, so a burst of
// keystrokes collapses into one commit of the latest content. Failures are
// logged and swallowed; autosave never interrupts the user.
type Autosaver struct {
	store store.AppStore
	actx  *appctx.AppContext
	quiet time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCommit
	closed  bool
}

type pendingCommit struct {
	timer    *time.Timer
	content  string
	deadline time.Time
}

func NewAutosaver(st store.AppStore, actx *appctx.AppContext, quiet time.Duration) *Autosaver {
	if quiet <= 0 {
		quiet = 4 * time.Second
	}
	return &Autosaver{
		store:   st,
		actx:    actx,
		quiet:   quiet,
		pending: make(map[string]*pendingCommit),
	}
}

// Schedule records content for appID and (re)starts its quiet-period
// timer. Only files explicitly bound to a persisted app reach here;
// unbound scratch files are never autosaved.
func (a *Autosaver) Schedule(appID, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	if p, ok := a.pending[appID]; ok {
		p.content = content
		p.deadline = time.Now().Add(a.quiet)
		p.timer.Reset(a.quiet)
		return
	}

	p := &pendingCommit{content: content, deadline: time.Now().Add(a.quiet)}
	p.timer = time.AfterFunc(a.quiet, func() { a.fire(appID) })
	a.pending[appID] = p
}

func (a *Autosaver) fire(appID string) {
	a.mu.Lock()
	p, ok := a.pending[appID]
	if !ok {
		a.mu.Unlock()
		return
	}
	// The timer may have raced a Reset; honor the newest deadline.
	if remaining := time.Until(p.deadline); remaining > 0 {
		p.timer.Reset(remaining)
		a.mu.Unlock()
		return
	}
	delete(a.pending, appID)
	content := p.content
	a.mu.Unlock()

	a.commit(appID, content)
}

func (a *Autosaver) commit(appID, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app, err := a.store.Update(ctx, appID, content, "Autosave")
	if err != nil {
		logger.L().Warn("autosave failed", zap.String("app_id", appID), zap.Error(err))
		return
	}
	a.actx.Log("Autosaved %s (v%d)", app.Name, app.Version)
}

// Flush commits every pending autosave immediately. Used on shutdown so a
// quiet-period edit is not lost.
func (a *Autosaver) Flush() {
	a.mu.Lock()
	commits := make(map[string]string, len(a.pending))
	for id, p := range a.pending {
		p.timer.Stop()
		commits[id] = p.content
		delete(a.pending, id)
	}
	a.mu.Unlock()

	for id, content := range commits {
		a.commit(id, content)
	}
}

// Close flushes pending commits and rejects further scheduling.
func (a *Autosaver) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.Flush()
}
