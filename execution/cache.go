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
package execution

import (
	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/protocol"
)

// CacheEntry is the last computed result of one expression.
type CacheEntry struct {
	Module     string
	Type       *string
	MethodCall *protocol.MethodCall
	Profiling  []protocol.ProfilingInfo
	Value      any
}

// ValueCache maps expression ids to their last computed results. It is
// owned by the context actor and is not safe for concurrent use.
type ValueCache struct {
	entries map[protocol.ExpressionID]CacheEntry
}

// NewValueCache creates an empty cache.
func NewValueCache() *ValueCache {
	return &ValueCache{entries: make(map[protocol.ExpressionID]CacheEntry)}
}

// Get returns the cached entry for id.
func (c *ValueCache) Get(id protocol.ExpressionID) (CacheEntry, bool) {
	e, ok := c.entries[id]
	return e, ok
}

// Has reports whether id has a cached result.
func (c *ValueCache) Has(id protocol.ExpressionID) bool {
	_, ok := c.entries[id]
	return ok
}

// Put writes an entry through and reports whether the visible pair
// (type, method call) changed relative to what was cached before. A write
// with an unchanged pair is a quiet re-execution.
func (c *ValueCache) Put(id protocol.ExpressionID, entry CacheEntry) (changed bool) {
	prev, ok := c.entries[id]
	c.entries[id] = entry
	if !ok {
		return true
	}
	if !equalType(prev.Type, entry.Type) {
		return true
	}
	return !prev.MethodCall.Equal(entry.MethodCall)
}

func equalType(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Invalidate removes the named entries, reporting how many were present.
func (c *ValueCache) Invalidate(ids ...protocol.ExpressionID) int {
	n := 0
	for _, id := range ids {
		if _, ok := c.entries[id]; ok {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// InvalidateModule removes every entry whose expression belongs to module,
// reporting how many were removed. Used on module edits and unloads.
func (c *ValueCache) InvalidateModule(module string) int {
	n := 0
	for id, e := range c.entries {
		if e.Module == module {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *ValueCache) Clear() {
	c.entries = make(map[protocol.ExpressionID]CacheEntry)
}

// Len reports the number of cached entries.
func (c *ValueCache) Len() int { return len(c.entries) }

// Snapshot copies the cache into the borrowed form handed to the evaluator
// with a job.
func (c *ValueCache) Snapshot() evaluator.Snapshot {
	snap := make(evaluator.Snapshot, len(c.entries))
	for id, e := range c.entries {
		snap[id] = evaluator.Cached{
			Module:     e.Module,
			Type:       e.Type,
			MethodCall: e.MethodCall,
			Value:      e.Value,
		}
	}
	return snap
}

// Clone deep-copies the cache for a context fork.
func (c *ValueCache) Clone() *ValueCache {
	clone := NewValueCache()
	for id, e := range c.entries {
		copied := e
		copied.Profiling = append([]protocol.ProfilingInfo(nil), e.Profiling...)
		clone.entries[id] = copied
	}
	return clone
}
