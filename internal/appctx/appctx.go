// Package appctx holds process-wide state that UI surfaces share: the
// current settings snapshot and a bounded, subscribable activity feed.
//
// One AppContext is constructed at startup and closed on shutdown. There
// are no package-level globals; everything that needs the feed receives
// the context explicitly.
package appctx

import (
	"fmt"
	"sync"
	"time"

	"github.com/jrlabs/appforge/internal/store"
)

// Entry is a single user-visible activity line.
type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// AppContext carries settings and the activity ring buffer.
type AppContext struct {
	mu       sync.RWMutex
	settings store.Settings

	entries []Entry // ring buffer, entries[next] is the oldest once full
	next    int
	full    bool

	subs    map[int]chan Entry
	nextSub int
	closed  bool
}

// New creates a context with an activity buffer of the given capacity.
func New(capacity int) *AppContext {
	if capacity <= 0 {
		capacity = 200
	}
	return &AppContext{
		entries: make([]Entry, capacity),
		subs:    make(map[int]chan Entry),
	}
}

// Log appends a formatted entry to the feed and notifies subscribers.
// Slow subscribers are skipped, never blocked on.
func (c *AppContext) Log(format string, args ...any) {
	e := Entry{Time: time.Now().UTC(), Message: fmt.Sprintf(format, args...)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.entries[c.next] = e
	c.next = (c.next + 1) % len(c.entries)
	if c.next == 0 {
		c.full = true
	}
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
		}
	}
	c.mu.Unlock()
}

// Recent returns up to limit entries, newest last. limit <= 0 returns all.
func (c *AppContext) Recent(limit int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Entry
	if c.full {
		out = append(out, c.entries[c.next:]...)
		out = append(out, c.entries[:c.next]...)
	} else {
		out = append(out, c.entries[:c.next]...)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Subscribe registers a listener for new entries. The returned cancel func
// must be called when the listener goes away.
func (c *AppContext) Subscribe() (<-chan Entry, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Entry, 16)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Settings returns the current settings snapshot.
func (c *AppContext) Settings() store.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// SetSettings replaces the settings snapshot. Persistence is the caller's
// job; the context only serves reads to other components.
func (c *AppContext) SetSettings(s store.Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

// Close tears down all subscriptions. Log calls after Close are dropped.
func (c *AppContext) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
