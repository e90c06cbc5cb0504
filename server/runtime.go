/*
Copyright © 2026 Lumen Language Contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package server wires the runtime together: the context registry, the
// suggestions index, the edit stream, per-session state, and the websocket
// transport carrying the text and binary channels.
package server

import (
	"sync"

	"github.com/google/uuid"
	"lumenlang.dev/runtime/edits"
	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/execution"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/platform"
	"lumenlang.dev/runtime/protocol"
	"lumenlang.dev/runtime/suggestions"
)

// Runtime is the single top-level owner of all runtime state. Background
// goroutines observe Shutdown and drain.
type Runtime struct {
	Contexts *execution.Registry
	Index    *suggestions.Index
	Edits    *edits.Stream

	hub         *hub
	eval        evaluator.Evaluator
	contentRoot uuid.UUID

	unsubscribe func()
	suggestDone chan struct{}

	watchMu sync.Mutex
	watcher *edits.Watcher

	shutdownOnce sync.Once
}

// NewRuntime assembles a runtime around an evaluator.
func NewRuntime(eval evaluator.Evaluator) *Runtime {
	h := newHub()
	index := suggestions.NewIndex()
	contexts := execution.NewRegistry(eval, h)
	stream := edits.NewStream(contexts, index)

	r := &Runtime{
		Contexts:    contexts,
		Index:       index,
		Edits:       stream,
		hub:         h,
		eval:        eval,
		contentRoot: uuid.New(),
		suggestDone: make(chan struct{}),
	}

	// Fan the versioned suggestions stream out to subscribed sessions.
	// One goroutine preserves strict version order per session.
	batches, unsubscribe := index.Subscribe()
	r.unsubscribe = unsubscribe
	go func() {
		defer close(r.suggestDone)
		for batch := range batches {
			r.hub.each(func(s *Session) {
				if !s.hasCapability(protocol.CapabilityReceivesSuggestion, nil) {
					return
				}
				s.notify(protocol.NotifySuggestionsDatabaseUpdate, batch, "")
			})
		}
	}()

	return r
}

// ContentRoot returns the root id reported by the session handshake.
func (r *Runtime) ContentRoot() uuid.UUID { return r.contentRoot }

// StartWatching attaches a file watcher feeding the edit stream.
func (r *Runtime) StartWatching(watcher platform.FileWatcher, resolver evaluator.ModuleResolver) {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	if r.watcher != nil {
		return
	}
	r.watcher = edits.NewWatcher(r.Edits, watcher, resolver)
}

// Shutdown stops watching, drains the edit stream, destroys every context,
// and detaches the suggestions fanout. Idempotent.
func (r *Runtime) Shutdown() {
	r.shutdownOnce.Do(func() {
		logging.Debug("runtime: shutting down")
		r.watchMu.Lock()
		if r.watcher != nil {
			r.watcher.Stop()
			r.watcher = nil
		}
		r.watchMu.Unlock()

		r.Edits.Shutdown()
		r.Contexts.Shutdown()
		r.unsubscribe()
		<-r.suggestDone

		r.hub.each(func(s *Session) {
			s.close()
		})
	})
}

// attachSession registers a fresh session over a transport.
func (r *Runtime) attachSession(t transport) *Session {
	s := newSession(t)
	r.hub.addSession(s)
	return s
}

// detachSession unregisters a session and stops its writer.
func (r *Runtime) detachSession(s *Session) {
	r.hub.removeSession(s)
	s.close()
}
