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

	"github.com/stretchr/testify/require"
)

func exportsFixture() *Index {
	index := NewIndex()
	index.ApplyModuleUpdate("Std.Data.Vector", nil, addTree(
		&Module{ModuleName: "Std.Data.Vector"},
		&Type{DefinedIn: "Std.Data.Vector", TypeName: "Vector"},
		&Method{
			DefinedIn:  "Std.Data.Vector",
			MethodName: "new",
			SelfType:   "Std.Data.Vector.Vector",
			ReturnType: "Std.Data.Vector.Vector",
			IsStatic:   true,
		},
	))
	return index
}

func TestApplyExportsAnnotatesAndStrips(t *testing.T) {
	index := exportsFixture()

	changed, version := index.ApplyExports([]ExportUpdate{{
		Action:   ExportAdd,
		Exporter: "Std.Data",
		Symbol:   ExportedSymbol{Kind: ExportedType, Module: "Std.Data.Vector", Name: "Vector"},
	}})
	require.Len(t, changed, 1)
	require.Len(t, changed[0], 1)
	require.EqualValues(t, 2, version)

	entry, ok := index.Get(changed[0][0])
	require.True(t, ok)
	require.NotNil(t, entry.(*Type).Reexport)
	require.Equal(t, "Std.Data", *entry.(*Type).Reexport)

	// Removing with a different exporter is a no-op; the matching exporter
	// strips the annotation.
	removed, v := index.ApplyExports([]ExportUpdate{{
		Action:   ExportRemove,
		Exporter: "Std.Wrong",
		Symbol:   ExportedSymbol{Kind: ExportedType, Module: "Std.Data.Vector", Name: "Vector"},
	}})
	require.Empty(t, removed[0])
	require.EqualValues(t, 2, v)

	removed, v = index.ApplyExports([]ExportUpdate{{
		Action:   ExportRemove,
		Exporter: "Std.Data",
		Symbol:   ExportedSymbol{Kind: ExportedType, Module: "Std.Data.Vector", Name: "Vector"},
	}})
	require.Len(t, removed[0], 1)
	require.EqualValues(t, 3, v)

	entry, ok = index.Get(removed[0][0])
	require.True(t, ok)
	require.Nil(t, entry.(*Type).Reexport)
}

func TestApplyExportsModuleSymbol(t *testing.T) {
	index := exportsFixture()

	changed, _ := index.ApplyExports([]ExportUpdate{{
		Action:   ExportAdd,
		Exporter: "Std",
		Symbol:   ExportedSymbol{Kind: ExportedModule, Module: "Std.Data.Vector"},
	}})
	require.Len(t, changed[0], 1, "only the module entry itself matches")

	entry, ok := index.Get(changed[0][0])
	require.True(t, ok)
	module, isModule := entry.(*Module)
	require.True(t, isModule)
	require.Equal(t, "Std", *module.Reexport)
}

func TestApplyExportsIgnoresLongerExporter(t *testing.T) {
	index := exportsFixture()
	before := index.CurrentVersion()

	// A nested re-exporter deeper than the defining module must not claim
	// the symbol.
	changed, version := index.ApplyExports([]ExportUpdate{{
		Action:   ExportAdd,
		Exporter: "Std.Data.Vector.Internal",
		Symbol:   ExportedSymbol{Kind: ExportedType, Module: "Std.Data.Vector", Name: "Vector"},
	}})
	require.Empty(t, changed[0])
	require.Equal(t, before, version)
}
