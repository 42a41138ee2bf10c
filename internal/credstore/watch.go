// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credstore

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// RECORD WATCHER
// =============================================================================

// The identity provider's own client may refresh the token from outside
// this process (a background refresh, or a fresh login in another
// terminal). The watcher picks up rewritten records and refreshes the
// in-memory copy so long-running sessions keep sending a live token.

type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

// Watch starts observing the state directory for rewritten credential
// records. Safe to call once; use Close to stop.
func (s *Store) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fs.Add(s.dir); err != nil {
		fs.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	w := &watcher{fs: fs, done: make(chan struct{})}
	s.watcher = w

	go s.watchLoop(w)
	return nil
}

// Close stops the record watcher if one is running.
func (s *Store) Close() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		close(w.done)
		w.fs.Close()
	}
}

func (s *Store) watchLoop(w *watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isRecordFile(filepath.Base(event.Name)) {
				continue
			}
			if token, ok := s.readRecord(event.Name); ok {
				s.remember(token)
				log.Printf("credstore: refreshed credential %s from %s",
					fingerprint(token), filepath.Base(event.Name))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("credstore: watch error: %v", err)
		}
	}
}

// isRecordFile reports whether a file name is one of the credential
// records (canonical or provider-patterned).
func isRecordFile(name string) bool {
	if name == canonicalFile {
		return true
	}
	return strings.HasPrefix(name, providerPrefix) && strings.HasSuffix(name, ".json")
}
