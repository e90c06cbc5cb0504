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
	"sort"

	"lumenlang.dev/runtime/protocol"
)

// Filter selects entries for Search. A nil slice means "no constraint"
// while an explicitly empty one means "match nothing"; an empty module
// string is equivalent to no module constraint.
type Filter struct {
	Module     *string
	SelfTypes  []string
	ReturnType *string
	Kinds      []Kind
	Position   *protocol.Position
}

// Search returns the ids of entries satisfying every present filter,
// together with the version of the snapshot searched. Results are ordered
// by specificity of the self-type match (position in the SelfTypes list,
// most specific first), then by insertion order.
func (i *Index) Search(f Filter) ([]uint64, uint64) {
	snap := i.snap.Load()

	// Explicit empty lists match nothing.
	if f.SelfTypes != nil && len(f.SelfTypes) == 0 {
		return nil, snap.version
	}
	if f.Kinds != nil && len(f.Kinds) == 0 {
		return nil, snap.version
	}

	kinds := make(map[Kind]struct{}, len(f.Kinds))
	for _, k := range f.Kinds {
		kinds[k] = struct{}{}
	}
	selfRank := make(map[string]int, len(f.SelfTypes))
	for rank, t := range f.SelfTypes {
		if _, ok := selfRank[t]; !ok {
			selfRank[t] = rank
		}
	}

	type match struct {
		id   uint64
		rank int
	}
	var matches []match

	snap.each(func(id uint64, e Entry) {
		if f.Module != nil && *f.Module != "" && e.Module() != *f.Module {
			return
		}
		if f.Kinds != nil {
			if _, ok := kinds[e.Kind()]; !ok {
				return
			}
		}
		rank := 0
		if f.SelfTypes != nil {
			self, ok := selfTypeOf(e)
			if !ok {
				return
			}
			rank, ok = selfRank[self]
			if !ok {
				return
			}
		}
		if f.ReturnType != nil {
			ret, ok := returnTypeOf(e)
			if !ok || ret != *f.ReturnType {
				return
			}
		}
		if f.Position != nil {
			if scope, ok := scopeOf(e); ok && !scope.Contains(*f.Position) {
				return
			}
		}
		matches = append(matches, match{id: id, rank: rank})
	})

	// Ids are allocated monotonically, so ordering by id within a rank is
	// insertion order.
	sort.Slice(matches, func(a, b int) bool {
		if matches[a].rank != matches[b].rank {
			return matches[a].rank < matches[b].rank
		}
		return matches[a].id < matches[b].id
	})

	ids := make([]uint64, len(matches))
	for n, m := range matches {
		ids[n] = m.id
	}
	return ids, snap.version
}

// GetAllMethods resolves (module, self type, name) triples to method ids,
// preserving input order. Unresolved triples yield nil.
func (i *Index) GetAllMethods(pointers []protocol.MethodPointer) []*uint64 {
	snap := i.snap.Load()
	out := make([]*uint64, len(pointers))
	for n, ptr := range pointers {
		shard, ok := snap.shards[ptr.Module]
		if !ok {
			continue
		}
		probe := Method{
			DefinedIn:  ptr.Module,
			MethodName: ptr.Name,
			SelfType:   ptr.DefinedOnType,
		}
		if id, ok := shard.byKey[probe.StructuralKey()]; ok {
			out[n] = &id
			continue
		}
		probe.IsStatic = true
		if id, ok := shard.byKey[probe.StructuralKey()]; ok {
			out[n] = &id
		}
	}
	return out
}

// UpdateByExternalID rewrites the return types of the entries carrying the
// given external ids and returns the ids actually changed. The version
// advances once iff anything changed.
func (i *Index) UpdateByExternalID(pairs []ExternalTypeUpdate) ([]uint64, uint64) {
	t := i.begin()
	var changed []uint64
	for _, pair := range pairs {
		t.base.each(func(id uint64, e Entry) {
			ext := externalIDOf(e)
			if ext == nil || *ext != pair.ExternalID {
				return
			}
			if ret, ok := returnTypeOf(e); !ok || ret == pair.ReturnType {
				return
			}
			modified := setReturnType(e.Clone(), pair.ReturnType)
			if t.replace(id, modified) {
				changed = append(changed, id)
			}
		})
	}
	version := t.commit()
	return changed, version
}

// ExternalTypeUpdate pairs an external id with the fresh return type
// inferred for it.
type ExternalTypeUpdate struct {
	ExternalID protocol.RequestID `json:"externalId"`
	ReturnType string             `json:"returnType"`
}

func externalIDOf(e Entry) *protocol.RequestID {
	switch entry := e.(type) {
	case *Type:
		return entry.ExternalID
	case *Constructor:
		return entry.ExternalID
	case *Method:
		return entry.ExternalID
	case *Conversion:
		return entry.ExternalID
	case *Function:
		return entry.ExternalID
	case *Local:
		return entry.ExternalID
	default:
		return nil
	}
}

func setReturnType(e Entry, returnType string) Entry {
	switch entry := e.(type) {
	case *Constructor:
		entry.ReturnType = returnType
	case *Method:
		entry.ReturnType = returnType
	case *Conversion:
		entry.ReturnType = returnType
	case *Function:
		entry.ReturnType = returnType
	case *Local:
		entry.ReturnType = returnType
	}
	return e
}
