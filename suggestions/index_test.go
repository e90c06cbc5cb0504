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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mainMethod() *Method {
	return &Method{
		DefinedIn:  "Test.Main",
		MethodName: "main",
		SelfType:   "Test.Main",
		ReturnType: "Standard.Base.Any",
		IsStatic:   true,
	}
}

func fooMethod() *Method {
	return &Method{
		DefinedIn:  "Test.Main",
		MethodName: "foo",
		Arguments:  []Argument{{Name: "x", Type: "Standard.Base.Number"}},
		SelfType:   "Standard.Base.Number",
		ReturnType: "Standard.Base.Number",
	}
}

func addTree(entries ...Entry) []TreeNode {
	nodes := make([]TreeNode, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, TreeNode{Update: TreeAdd, Suggestion: e})
	}
	return nodes
}

func TestApplyModuleUpdateAddsAndVersions(t *testing.T) {
	index := NewIndex()
	require.EqualValues(t, 0, index.CurrentVersion())

	version := index.ApplyModuleUpdate("Test.Main", nil, addTree(
		&Module{ModuleName: "Test.Main"},
		mainMethod(),
		fooMethod(),
	))
	require.EqualValues(t, 1, version)
	require.Equal(t, 3, index.Len())

	t.Run("duplicates are never indexed twice", func(t *testing.T) {
		version := index.ApplyModuleUpdate("Test.Main", nil, addTree(mainMethod()))
		require.EqualValues(t, 1, version, "re-adding an indexed entry must not advance the version")
		require.Equal(t, 3, index.Len())
	})

	t.Run("applying a tree twice equals applying it once", func(t *testing.T) {
		tree := []TreeNode{{
			Update:     TreeModify,
			Suggestion: fooMethod(),
			Modification: &Modification{
				ReturnType: &FieldUpdate{Value: "Standard.Base.Integer"},
			},
		}}
		first := index.ApplyModuleUpdate("Test.Main", nil, tree)
		second := index.ApplyModuleUpdate("Test.Main", nil, tree)
		require.Equal(t, first, second, "a no-op re-application must keep the version")
	})
}

func TestModifyTracksNoOps(t *testing.T) {
	index := NewIndex()
	index.ApplyModuleUpdate("Test.Main", nil, addTree(fooMethod()))
	before := index.CurrentVersion()

	// Setting the current value is a no-op.
	version := index.ApplyModuleUpdate("Test.Main", nil, []TreeNode{{
		Update:     TreeModify,
		Suggestion: fooMethod(),
		Modification: &Modification{
			ReturnType: &FieldUpdate{Value: "Standard.Base.Number"},
		},
	}})
	require.Equal(t, before, version)

	// An effective change advances it exactly once.
	version = index.ApplyModuleUpdate("Test.Main", nil, []TreeNode{{
		Update:     TreeModify,
		Suggestion: fooMethod(),
		Modification: &Modification{
			ReturnType:    &FieldUpdate{Value: "Standard.Base.Integer"},
			Documentation: &FieldUpdate{Value: "Multiplies by self plus three."},
		},
	}})
	require.Equal(t, before+1, version)
}

func TestRemoveAndCleanAction(t *testing.T) {
	index := NewIndex()
	index.ApplyModuleUpdate("Test.Main", nil, addTree(mainMethod(), fooMethod()))

	version := index.ApplyModuleUpdate("Test.Main", nil, []TreeNode{{
		Update:     TreeRemove,
		Suggestion: mainMethod(),
	}})
	require.EqualValues(t, 2, version)
	require.Equal(t, 1, index.Len())

	version = index.ApplyModuleUpdate("Test.Main", []Action{{Kind: ActionClean, Module: "Test.Main"}}, nil)
	require.EqualValues(t, 3, version)
	require.Equal(t, 0, index.Len())

	// Cleaning an empty module is a no-op.
	version = index.ApplyModuleUpdate("Test.Main", []Action{{Kind: ActionClean, Module: "Test.Main"}}, nil)
	require.EqualValues(t, 3, version)
}

func TestArgumentUpdates(t *testing.T) {
	index := NewIndex()
	index.ApplyModuleUpdate("Test.Main", nil, addTree(fooMethod()))

	index.ApplyModuleUpdate("Test.Main", nil, []TreeNode{{
		Update:     TreeModify,
		Suggestion: fooMethod(),
		Modification: &Modification{
			Arguments: []ArgumentUpdate{
				{Kind: TreeModify, Index: 0, Name: strptr("factor")},
				{Kind: TreeAdd, Index: 1, Argument: &Argument{Name: "offset", Type: "Standard.Base.Number", HasDefault: true, DefaultValue: strptr("0")}},
			},
		},
	}})

	ids, _ := index.Search(Filter{Module: strptr("Test.Main")})
	require.Len(t, ids, 1)
	entry, ok := index.Get(ids[0])
	require.True(t, ok)
	method := entry.(*Method)
	require.Len(t, method.Arguments, 2)
	require.Equal(t, "factor", method.Arguments[0].Name)
	require.Equal(t, "offset", method.Arguments[1].Name)
	require.True(t, method.Arguments[1].HasDefault)
}

func TestUpdateStreamIsVersionOrdered(t *testing.T) {
	index := NewIndex()
	batches, cancel := index.Subscribe()
	defer cancel()

	index.ApplyModuleUpdate("Test.Main", nil, addTree(mainMethod()))
	index.ApplyModuleUpdate("Test.Main", nil, addTree(fooMethod()))
	// A no-op publishes nothing.
	index.ApplyModuleUpdate("Test.Main", nil, addTree(fooMethod()))

	var versions []uint64
	for len(versions) < 2 {
		select {
		case batch := <-batches:
			require.NotEmpty(t, batch.Updates)
			versions = append(versions, batch.CurrentVersion)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for update batches")
		}
	}
	require.Equal(t, []uint64{1, 2}, versions)

	select {
	case batch := <-batches:
		t.Fatalf("unexpected batch at version %d", batch.CurrentVersion)
	case <-time.After(50 * time.Millisecond):
	}
}

func strptr(s string) *string { return &s }
