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

// Package visualization keeps the per-context registry of attached
// visualizations: a forward map from visualization id to its specification
// and an inverted index from expression id to the visualizations watching
// it. The two maps are kept in bijection.
package visualization

import (
	"fmt"

	"lumenlang.dev/runtime/protocol"
)

// Attached is one registered visualization.
type Attached struct {
	ID           protocol.VisualizationID
	ExpressionID protocol.ExpressionID
	Module       string
	Expression   protocol.VisualizationExpression
}

// Registry is owned by a single context actor and is not safe for
// concurrent use.
type Registry struct {
	forward  map[protocol.VisualizationID]*Attached
	inverted map[protocol.ExpressionID]map[protocol.VisualizationID]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		forward:  make(map[protocol.VisualizationID]*Attached),
		inverted: make(map[protocol.ExpressionID]map[protocol.VisualizationID]struct{}),
	}
}

// Attach inserts a visualization. Attaching an id that is already present
// fails; the caller modifies instead.
func (r *Registry) Attach(v Attached) error {
	if _, ok := r.forward[v.ID]; ok {
		return fmt.Errorf("visualization %s already attached", v.ID)
	}
	stored := v
	r.forward[v.ID] = &stored
	set, ok := r.inverted[v.ExpressionID]
	if !ok {
		set = make(map[protocol.VisualizationID]struct{})
		r.inverted[v.ExpressionID] = set
	}
	set[v.ID] = struct{}{}
	return nil
}

// Modify atomically replaces the spec of an attached visualization. The
// expression target may change; the inverted index follows.
func (r *Registry) Modify(id protocol.VisualizationID, expressionID protocol.ExpressionID, module string, expression protocol.VisualizationExpression) error {
	existing, ok := r.forward[id]
	if !ok {
		return fmt.Errorf("visualization %s not attached", id)
	}
	if existing.ExpressionID != expressionID {
		r.removeInverted(existing.ExpressionID, id)
		set, ok := r.inverted[expressionID]
		if !ok {
			set = make(map[protocol.VisualizationID]struct{})
			r.inverted[expressionID] = set
		}
		set[id] = struct{}{}
	}
	existing.ExpressionID = expressionID
	existing.Module = module
	existing.Expression = expression
	return nil
}

// Detach removes a visualization; the expression id must match the
// registration.
func (r *Registry) Detach(id protocol.VisualizationID, expressionID protocol.ExpressionID) error {
	existing, ok := r.forward[id]
	if !ok || existing.ExpressionID != expressionID {
		return fmt.Errorf("visualization %s not attached to expression %s", id, expressionID)
	}
	delete(r.forward, id)
	r.removeInverted(expressionID, id)
	return nil
}

func (r *Registry) removeInverted(expressionID protocol.ExpressionID, id protocol.VisualizationID) {
	set, ok := r.inverted[expressionID]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.inverted, expressionID)
	}
}

// Get returns the visualization registered under id.
func (r *Registry) Get(id protocol.VisualizationID) (Attached, bool) {
	v, ok := r.forward[id]
	if !ok {
		return Attached{}, false
	}
	return *v, true
}

// For returns the visualizations watching an expression, in unspecified
// order.
func (r *Registry) For(expressionID protocol.ExpressionID) []Attached {
	set, ok := r.inverted[expressionID]
	if !ok {
		return nil
	}
	out := make([]Attached, 0, len(set))
	for id := range set {
		out = append(out, *r.forward[id])
	}
	return out
}

// Len reports the number of attached visualizations.
func (r *Registry) Len() int { return len(r.forward) }

// Clone deep-copies the registry for a context fork.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	for _, v := range r.forward {
		// Attach cannot fail on a fresh registry with unique ids.
		_ = c.Attach(*v)
	}
	return c
}
