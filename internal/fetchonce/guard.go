// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fetchonce deduplicates fetch initiation under re-entrant
// startup signals.
//
// UI layers can fire the same "load now" trigger more than once for the
// same logical key in quick succession. The Guard is a per-key latch:
// it admits exactly one initiation per distinct key until the selection
// is cleared. It deduplicates initiation only; callers keep ownership
// of the fetched data.
package fetchonce

import "sync"

// Guard is a per-key initiation latch. The zero value is ready to use.
//
// Thread-safety: all operations are mutex-protected; Begin may be
// called from concurrent initialization paths.
type Guard struct {
	mu   sync.Mutex
	seen map[string]bool
}

// New creates an empty Guard.
func New() *Guard {
	return &Guard{seen: make(map[string]bool)}
}

// Begin reports whether the caller should proceed with the fetch for
// key. It returns true exactly once per distinct non-empty key;
// subsequent calls with the same key return false and the caller must
// skip its fetch.
//
// An empty key means "no active selection": it resets the latch so the
// same keys are admitted again on re-entry, and returns false.
func (g *Guard) Begin(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if key == "" {
		g.seen = make(map[string]bool)
		return false
	}
	if g.seen[key] {
		return false
	}
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	g.seen[key] = true
	return true
}

// Forget clears the latch for a single key, admitting it again on the
// next Begin. Used when a fetch failed and should be retried.
func (g *Guard) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, key)
}

// Reset clears all latched keys.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = make(map[string]bool)
}
