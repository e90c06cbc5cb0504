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
	"testing"

	"lumenlang.dev/runtime/protocol"
)

func strptr(s string) *string { return &s }

func TestCachePutReportsVisibleChanges(t *testing.T) {
	c := NewValueCache()
	id := protocol.NewExpressionID()

	t.Run("first write always changes", func(t *testing.T) {
		if !c.Put(id, CacheEntry{Module: "Test.Main", Type: strptr("Number")}) {
			t.Error("first write must report a change")
		}
	})

	t.Run("same type and method call is quiet", func(t *testing.T) {
		if c.Put(id, CacheEntry{Module: "Test.Main", Type: strptr("Number")}) {
			t.Error("unchanged pair must be quiet")
		}
	})

	t.Run("type change is reported", func(t *testing.T) {
		if !c.Put(id, CacheEntry{Module: "Test.Main", Type: strptr("Text")}) {
			t.Error("type change must be reported")
		}
	})

	t.Run("method call change is reported", func(t *testing.T) {
		call := &protocol.MethodCall{
			MethodPointer: protocol.MethodPointer{Module: "Test.Main", DefinedOnType: "Number", Name: "foo"},
		}
		if !c.Put(id, CacheEntry{Module: "Test.Main", Type: strptr("Text"), MethodCall: call}) {
			t.Error("method call change must be reported")
		}
		if c.Put(id, CacheEntry{Module: "Test.Main", Type: strptr("Text"), MethodCall: call}) {
			t.Error("unchanged method call must be quiet")
		}
	})
}

func TestCacheInvalidation(t *testing.T) {
	c := NewValueCache()
	inMain := protocol.NewExpressionID()
	alsoInMain := protocol.NewExpressionID()
	inUtil := protocol.NewExpressionID()
	c.Put(inMain, CacheEntry{Module: "Test.Main"})
	c.Put(alsoInMain, CacheEntry{Module: "Test.Main"})
	c.Put(inUtil, CacheEntry{Module: "Test.Util"})

	t.Run("by id", func(t *testing.T) {
		if n := c.Invalidate(inMain); n != 1 {
			t.Errorf("expected 1 invalidation, got %d", n)
		}
		if c.Has(inMain) {
			t.Error("entry must be gone")
		}
		if n := c.Invalidate(inMain); n != 0 {
			t.Errorf("expected 0 invalidations, got %d", n)
		}
	})

	t.Run("by module", func(t *testing.T) {
		if n := c.InvalidateModule("Test.Main"); n != 1 {
			t.Errorf("expected 1 invalidation, got %d", n)
		}
		if !c.Has(inUtil) {
			t.Error("other module's entry must survive")
		}
	})

	t.Run("clear", func(t *testing.T) {
		c.Clear()
		if c.Len() != 0 {
			t.Errorf("expected empty cache, got %d entries", c.Len())
		}
	})
}

func TestCacheSnapshotAndCloneAreIndependent(t *testing.T) {
	c := NewValueCache()
	id := protocol.NewExpressionID()
	c.Put(id, CacheEntry{Module: "Test.Main", Type: strptr("Number"), Value: 6})

	snap := c.Snapshot()
	clone := c.Clone()
	c.Clear()

	if cached, ok := snap[id]; !ok || cached.Value != 6 {
		t.Error("snapshot must keep the entry after the cache is cleared")
	}
	if entry, ok := clone.Get(id); !ok || entry.Value != 6 {
		t.Error("clone must keep the entry after the cache is cleared")
	}
}
