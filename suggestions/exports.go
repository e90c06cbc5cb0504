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

// ExportedSymbolKind discriminates the symbols an export edge can carry.
type ExportedSymbolKind string

const (
	ExportedModule      ExportedSymbolKind = "Module"
	ExportedType        ExportedSymbolKind = "Type"
	ExportedConstructor ExportedSymbolKind = "Constructor"
	ExportedMethod      ExportedSymbolKind = "Method"
)

// ExportedSymbol names a symbol re-exported by some module.
type ExportedSymbol struct {
	Kind   ExportedSymbolKind `json:"kind"`
	Module string             `json:"module"`
	Name   string             `json:"name,omitempty"`
}

// ExportAction adds or removes a re-export edge.
type ExportAction string

const (
	ExportAdd    ExportAction = "Add"
	ExportRemove ExportAction = "Remove"
)

// ExportUpdate is one change to the export graph.
type ExportUpdate struct {
	Action   ExportAction   `json:"action"`
	Exporter string         `json:"exporter"`
	Symbol   ExportedSymbol `json:"symbol"`
}

// ApplyExports re-annotates matching entries with (or strips from them) the
// exporting module. Updates whose exporter module is strictly longer than
// the symbol's defining module are ignored, which keeps nested re-exports
// from being misattributed to the deepest module in the chain. Returns the
// ids changed per update, in input order; the version advances once iff any
// id changed.
func (i *Index) ApplyExports(updates []ExportUpdate) ([][]uint64, uint64) {
	t := i.begin()
	changed := make([][]uint64, len(updates))
	for n, update := range updates {
		if len(update.Exporter) > len(update.Symbol.Module) {
			continue
		}
		changed[n] = applyExport(t, update)
	}
	version := t.commit()
	return changed, version
}

func applyExport(t *txn, update ExportUpdate) []uint64 {
	var ids []uint64
	t.base.each(func(id uint64, e Entry) {
		if !exportMatches(e, update.Symbol) {
			return
		}
		reexport := reexportOf(e)
		switch update.Action {
		case ExportAdd:
			if reexport != nil && *reexport == update.Exporter {
				return
			}
			modified := setReexport(e.Clone(), &update.Exporter)
			if t.replace(id, modified) {
				ids = append(ids, id)
			}
		case ExportRemove:
			if reexport == nil || *reexport != update.Exporter {
				return
			}
			modified := setReexport(e.Clone(), nil)
			if t.replace(id, modified) {
				ids = append(ids, id)
			}
		}
	})
	return ids
}

// exportMatches reports whether the entry is the declaration the exported
// symbol names: the module itself for a Module symbol, otherwise a
// same-kind declaration of the symbol's module with the symbol's name.
func exportMatches(e Entry, symbol ExportedSymbol) bool {
	switch symbol.Kind {
	case ExportedModule:
		m, ok := e.(*Module)
		return ok && m.ModuleName == symbol.Module
	case ExportedType:
		entry, ok := e.(*Type)
		return ok && entry.DefinedIn == symbol.Module && entry.TypeName == symbol.Name
	case ExportedConstructor:
		entry, ok := e.(*Constructor)
		return ok && entry.DefinedIn == symbol.Module && entry.ConstructorName == symbol.Name
	case ExportedMethod:
		entry, ok := e.(*Method)
		return ok && entry.DefinedIn == symbol.Module && entry.MethodName == symbol.Name
	default:
		return false
	}
}

func reexportOf(e Entry) *string {
	switch entry := e.(type) {
	case *Module:
		return entry.Reexport
	case *Type:
		return entry.Reexport
	case *Constructor:
		return entry.Reexport
	case *Method:
		return entry.Reexport
	default:
		return nil
	}
}

func setReexport(e Entry, reexport *string) Entry {
	switch entry := e.(type) {
	case *Module:
		entry.Reexport = reexport
	case *Type:
		entry.Reexport = reexport
	case *Constructor:
		entry.Reexport = reexport
	case *Method:
		entry.Reexport = reexport
	}
	return e
}
