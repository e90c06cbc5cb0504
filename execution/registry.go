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

// Package execution hosts the execution contexts of the runtime: per-context
// actors owning a stack, a value cache, and a visualization registry, and
// the process-wide registry that creates, forks, and destroys them.
package execution

import (
	"errors"
	"sync"

	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/metrics"
	"lumenlang.dev/runtime/protocol"
	"lumenlang.dev/runtime/visualization"
)

// ErrContextNotFound is returned for operations on unknown context ids.
var ErrContextNotFound = errors.New("context not found")

// Registry is the process-wide map from context id to actor. The coarse
// lock covers create, fork, and destroy only; command routing goes through
// each actor's own queue.
type Registry struct {
	mu      sync.Mutex
	eval    evaluator.Evaluator
	emitter Emitter
	actors  map[protocol.ContextID]*Actor
	closed  bool
}

// NewRegistry creates an empty context registry.
func NewRegistry(eval evaluator.Evaluator, emitter Emitter) *Registry {
	return &Registry{
		eval:    eval,
		emitter: emitter,
		actors:  make(map[protocol.ContextID]*Actor),
	}
}

// Create spawns a context actor. It is idempotent: when the suggested id
// already exists it is returned unchanged.
func (r *Registry) Create(suggested *protocol.ContextID) (protocol.ContextID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return protocol.ContextID{}, ErrContextDestroyed
	}
	if suggested != nil {
		if _, ok := r.actors[*suggested]; ok {
			return *suggested, nil
		}
	}
	id := protocol.NewContextID()
	if suggested != nil {
		id = *suggested
	}
	r.actors[id] = newActor(id, r.eval, r.emitter, &contextState{
		stack: NewStack(),
		cache: NewValueCache(),
		viz:   visualization.NewRegistry(),
		env:   protocol.EnvironmentDesign,
	})
	metrics.ContextsActive.Inc()
	logging.Debug("created execution context %s", id)
	return id, nil
}

// Get returns the actor owning a context.
func (r *Registry) Get(id protocol.ContextID) (*Actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	actor, ok := r.actors[id]
	if !ok {
		return nil, ErrContextNotFound
	}
	return actor, nil
}

// Fork deep-copies the context's triple into a fresh context with an
// independent lifetime.
func (r *Registry) Fork(id protocol.ContextID) (protocol.ContextID, error) {
	r.mu.Lock()
	source, ok := r.actors[id]
	r.mu.Unlock()
	if !ok {
		return protocol.ContextID{}, ErrContextNotFound
	}

	state, err := source.snapshotState()
	if err != nil {
		return protocol.ContextID{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return protocol.ContextID{}, ErrContextDestroyed
	}
	forked := protocol.NewContextID()
	r.actors[forked] = newActor(forked, r.eval, r.emitter, state)
	metrics.ContextsActive.Inc()
	logging.Debug("forked execution context %s into %s", id, forked)
	return forked, nil
}

// Destroy cancels the context's in-flight job, drains its queued commands
// with destroyed errors, and releases it. Destroying an unknown id is a
// no-op, which makes the operation idempotent after the first call.
func (r *Registry) Destroy(id protocol.ContextID) {
	r.mu.Lock()
	actor, ok := r.actors[id]
	delete(r.actors, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	actor.destroy()
	metrics.ContextsActive.Dec()
	logging.Debug("destroyed execution context %s", id)
}

// List returns the ids of all live contexts.
func (r *Registry) List() []protocol.ContextID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]protocol.ContextID, 0, len(r.actors))
	for id := range r.actors {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown destroys every context. Further creates fail.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	actors := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.actors = make(map[protocol.ContextID]*Actor)
	r.mu.Unlock()
	for _, a := range actors {
		a.destroy()
		metrics.ContextsActive.Dec()
	}
}
