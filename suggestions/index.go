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
package suggestions

import (
	"sync"
	"sync/atomic"

	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/metrics"
)

// UpdateKind discriminates the entries of a database update batch.
type UpdateKind string

const (
	UpdateAdd    UpdateKind = "Add"
	UpdateRemove UpdateKind = "Remove"
	UpdateModify UpdateKind = "Modify"
)

// DatabaseUpdate is one element of the versioned change stream.
type DatabaseUpdate struct {
	ID         uint64     `json:"id"`
	Kind       UpdateKind `json:"kind"`
	Suggestion Entry      `json:"suggestion,omitempty"`
}

// UpdateBatch is delivered to subscribers after each effective mutation, in
// strict version order.
type UpdateBatch struct {
	Updates        []DatabaseUpdate `json:"updates"`
	CurrentVersion uint64           `json:"currentVersion"`
}

// moduleShard holds the entries of one module. Shards are immutable once
// published in a snapshot; the writer clones a shard before changing it.
type moduleShard struct {
	entries map[uint64]Entry
	byKey   map[string]uint64
}

func newModuleShard() *moduleShard {
	return &moduleShard{
		entries: make(map[uint64]Entry),
		byKey:   make(map[string]uint64),
	}
}

func (s *moduleShard) clone() *moduleShard {
	c := &moduleShard{
		entries: make(map[uint64]Entry, len(s.entries)),
		byKey:   make(map[string]uint64, len(s.byKey)),
	}
	for id, e := range s.entries {
		c.entries[id] = e
	}
	for k, id := range s.byKey {
		c.byKey[k] = id
	}
	return c
}

// snapshot is a point-in-time view of the whole index. Readers load it
// atomically and never block the writer.
type snapshot struct {
	version uint64
	shards  map[string]*moduleShard
	byID    map[uint64]string // id → module
}

func (s *snapshot) get(id uint64) (Entry, bool) {
	module, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	shard, ok := s.shards[module]
	if !ok {
		return nil, false
	}
	e, ok := shard.entries[id]
	return e, ok
}

func (s *snapshot) each(f func(id uint64, e Entry)) {
	for _, shard := range s.shards {
		for id, e := range shard.entries {
			f(id, e)
		}
	}
}

// Index is the suggestions database. A single writer mutates it through
// copy-on-write snapshots of the affected module shards; readers run
// against the latest snapshot without blocking writes.
type Index struct {
	mu     sync.Mutex // serializes writers and subscriber bookkeeping
	snap   atomic.Pointer[snapshot]
	nextID uint64

	subs    map[int]chan UpdateBatch
	nextSub int
}

// NewIndex creates an empty index at version 0.
func NewIndex() *Index {
	i := &Index{subs: make(map[int]chan UpdateBatch)}
	i.snap.Store(&snapshot{
		shards: make(map[string]*moduleShard),
		byID:   make(map[uint64]string),
	})
	return i
}

// CurrentVersion returns the version of the latest snapshot.
func (i *Index) CurrentVersion() uint64 {
	return i.snap.Load().version
}

// Get returns the entry stored under id.
func (i *Index) Get(id uint64) (Entry, bool) {
	return i.snap.Load().get(id)
}

// Len reports the number of indexed entries.
func (i *Index) Len() int {
	return len(i.snap.Load().byID)
}

// Subscribe registers for versioned update batches. The returned cancel
// function must be called to release the subscription.
func (i *Index) Subscribe() (<-chan UpdateBatch, func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.nextSub
	i.nextSub++
	ch := make(chan UpdateBatch, 256)
	i.subs[id] = ch
	return ch, func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		if sub, ok := i.subs[id]; ok {
			delete(i.subs, id)
			close(sub)
		}
	}
}

// txn is one writer transaction. Shards are cloned lazily on first touch;
// commit publishes a new snapshot iff the transaction changed anything.
type txn struct {
	index   *Index
	base    *snapshot
	shards  map[string]*moduleShard // cloned or fresh shards, by module
	byID    map[uint64]string       // nil until membership changes
	updates []DatabaseUpdate
}

// begin acquires the writer lock. Callers must finish with commit.
func (i *Index) begin() *txn {
	i.mu.Lock()
	return &txn{
		index:  i,
		base:   i.snap.Load(),
		shards: make(map[string]*moduleShard),
	}
}

// shard returns the writable shard for a module.
func (t *txn) shard(module string) *moduleShard {
	if s, ok := t.shards[module]; ok {
		return s
	}
	var s *moduleShard
	if existing, ok := t.base.shards[module]; ok {
		s = existing.clone()
	} else {
		s = newModuleShard()
	}
	t.shards[module] = s
	return s
}

func (t *txn) ensureByID() map[uint64]string {
	if t.byID == nil {
		t.byID = make(map[uint64]string, len(t.base.byID))
		for id, m := range t.base.byID {
			t.byID[id] = m
		}
	}
	return t.byID
}

func (t *txn) currentByID() map[uint64]string {
	if t.byID != nil {
		return t.byID
	}
	return t.base.byID
}

// lookup finds an entry by structural key within its module.
func (t *txn) lookup(module, key string) (uint64, Entry, bool) {
	shard, ok := t.shards[module]
	if !ok {
		shard, ok = t.base.shards[module]
		if !ok {
			return 0, nil, false
		}
	}
	id, ok := shard.byKey[key]
	if !ok {
		return 0, nil, false
	}
	return id, shard.entries[id], true
}

// add inserts an entry unless its structural key is already indexed.
func (t *txn) add(e Entry) (uint64, bool) {
	module := e.Module()
	key := e.StructuralKey()
	if id, _, ok := t.lookup(module, key); ok {
		return id, false
	}
	t.index.nextID++
	id := t.index.nextID
	shard := t.shard(module)
	shard.entries[id] = e
	shard.byKey[key] = id
	t.ensureByID()[id] = module
	t.updates = append(t.updates, DatabaseUpdate{ID: id, Kind: UpdateAdd, Suggestion: e})
	return id, true
}

// remove deletes the entry stored under id.
func (t *txn) remove(id uint64) bool {
	module, ok := t.currentByID()[id]
	if !ok {
		return false
	}
	shard := t.shard(module)
	e, ok := shard.entries[id]
	if !ok {
		return false
	}
	delete(shard.entries, id)
	delete(shard.byKey, e.StructuralKey())
	delete(t.ensureByID(), id)
	t.updates = append(t.updates, DatabaseUpdate{ID: id, Kind: UpdateRemove})
	return true
}

// replace swaps the entry stored under id, moving it between shards when
// the module changed.
func (t *txn) replace(id uint64, e Entry) bool {
	oldModule, ok := t.currentByID()[id]
	if !ok {
		return false
	}
	oldShard := t.shard(oldModule)
	old, ok := oldShard.entries[id]
	if !ok {
		return false
	}
	delete(oldShard.entries, id)
	delete(oldShard.byKey, old.StructuralKey())
	newModule := e.Module()
	newShard := t.shard(newModule)
	newShard.entries[id] = e
	newShard.byKey[e.StructuralKey()] = id
	if newModule != oldModule {
		t.ensureByID()[id] = newModule
	}
	t.updates = append(t.updates, DatabaseUpdate{ID: id, Kind: UpdateModify, Suggestion: e})
	return true
}

// removeModule drops every entry of a module.
func (t *txn) removeModule(module string) {
	shard, ok := t.shards[module]
	if !ok {
		shard, ok = t.base.shards[module]
		if !ok {
			return
		}
	}
	ids := make([]uint64, 0, len(shard.entries))
	for id := range shard.entries {
		ids = append(ids, id)
	}
	for _, id := range ids {
		t.remove(id)
	}
}

// commit publishes the transaction. The version advances iff the
// transaction produced at least one update; subscribers are notified in
// version order under the writer lock.
func (t *txn) commit() uint64 {
	defer t.index.mu.Unlock()

	if len(t.updates) == 0 {
		return t.base.version
	}

	next := &snapshot{
		version: t.base.version + 1,
		shards:  make(map[string]*moduleShard, len(t.base.shards)+len(t.shards)),
		byID:    t.base.byID,
	}
	for m, s := range t.base.shards {
		next.shards[m] = s
	}
	for m, s := range t.shards {
		if len(s.entries) == 0 {
			delete(next.shards, m)
			continue
		}
		next.shards[m] = s
	}
	if t.byID != nil {
		next.byID = t.byID
	}
	t.index.snap.Store(next)
	metrics.SuggestionsVersion.Set(float64(next.version))

	batch := UpdateBatch{Updates: t.updates, CurrentVersion: next.version}
	for _, sub := range t.index.subs {
		select {
		case sub <- batch:
		default:
			logging.Warning("suggestions subscriber lagging; dropping update batch at version %d", next.version)
		}
	}
	return next.version
}

// Clean drops every entry, advancing the version when the index was
// non-empty.
func (i *Index) Clean() uint64 {
	t := i.begin()
	for id := range t.base.byID {
		t.remove(id)
	}
	return t.commit()
}
