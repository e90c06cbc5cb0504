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
	"reflect"

	"github.com/google/uuid"
)

// ActionKind is a coarse module-level action applied before the update
// tree.
type ActionKind string

const (
	// ActionClean removes every entry of the module.
	ActionClean ActionKind = "Clean"
)

// Action is one coarse operation of a module update.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Module string     `json:"module"`
}

// TreeUpdateKind discriminates per-entry updates in the tree.
type TreeUpdateKind string

const (
	TreeAdd    TreeUpdateKind = "Add"
	TreeRemove TreeUpdateKind = "Remove"
	TreeModify TreeUpdateKind = "Modify"
)

// FieldUpdate sets or removes an optional string-typed field. A nil
// FieldUpdate in a Modification leaves the field untouched.
type FieldUpdate struct {
	Remove bool   `json:"remove,omitempty"`
	Value  string `json:"value,omitempty"`
}

// apply resolves the update against the current optional value.
func (u *FieldUpdate) apply(current *string) *string {
	if u == nil {
		return current
	}
	if u.Remove {
		return nil
	}
	v := u.Value
	return &v
}

// ScopeUpdate sets a new lexical scope.
type ScopeUpdate struct {
	Value Scope `json:"value"`
}

// UUIDUpdate sets or removes an external id.
type UUIDUpdate struct {
	Remove bool      `json:"remove,omitempty"`
	Value  uuid.UUID `json:"value,omitempty"`
}

func (u *UUIDUpdate) apply(current *uuid.UUID) *uuid.UUID {
	if u == nil {
		return current
	}
	if u.Remove {
		return nil
	}
	v := u.Value
	return &v
}

// ArgumentUpdate is one positional change to an argument list.
type ArgumentUpdate struct {
	Kind  TreeUpdateKind `json:"kind"`
	Index int            `json:"index"`

	// Add
	Argument *Argument `json:"argument,omitempty"`

	// Modify
	Name         *string      `json:"name,omitempty"`
	Type         *string      `json:"reprType,omitempty"`
	IsSuspended  *bool        `json:"isSuspended,omitempty"`
	HasDefault   *bool        `json:"hasDefault,omitempty"`
	DefaultValue *FieldUpdate `json:"defaultValue,omitempty"`
}

// Modification is the field-level payload of a Modify tree update.
type Modification struct {
	ExternalID    *UUIDUpdate      `json:"externalId,omitempty"`
	Module        *FieldUpdate     `json:"module,omitempty"`
	SelfType      *FieldUpdate     `json:"selfType,omitempty"`
	ReturnType    *FieldUpdate     `json:"returnType,omitempty"`
	Documentation *FieldUpdate     `json:"documentation,omitempty"`
	Scope         *ScopeUpdate     `json:"scope,omitempty"`
	Reexport      *FieldUpdate     `json:"reexport,omitempty"`
	Arguments     []ArgumentUpdate `json:"arguments,omitempty"`
}

// TreeNode is one node of the rooted update tree: an entry, what to do with
// it, and the updates of the entries nested below it.
type TreeNode struct {
	Update       TreeUpdateKind `json:"update"`
	Suggestion   Entry          `json:"suggestion"`
	Modification *Modification  `json:"modification,omitempty"`
	Children     []TreeNode     `json:"children,omitempty"`
}

// ApplyModuleUpdate applies the actions and the update tree of one module
// compilation atomically. The version advances iff at least one entry
// effectively changed; re-applying the same tree is idempotent.
func (i *Index) ApplyModuleUpdate(module string, actions []Action, tree []TreeNode) uint64 {
	t := i.begin()
	for _, action := range actions {
		switch action.Kind {
		case ActionClean:
			t.removeModule(action.Module)
		}
	}
	applyTree(t, tree)
	return t.commit()
}

func applyTree(t *txn, nodes []TreeNode) {
	for _, node := range nodes {
		applyNode(t, node)
		applyTree(t, node.Children)
	}
}

func applyNode(t *txn, node TreeNode) {
	if node.Suggestion == nil {
		return
	}
	module := node.Suggestion.Module()
	key := node.Suggestion.StructuralKey()
	switch node.Update {
	case TreeAdd:
		t.add(node.Suggestion.Clone())
	case TreeRemove:
		if id, _, ok := t.lookup(module, key); ok {
			t.remove(id)
		}
	case TreeModify:
		id, current, ok := t.lookup(module, key)
		if !ok {
			return
		}
		modified := modifyEntry(current, node.Modification)
		if reflect.DeepEqual(current, modified) {
			// No-op modification: the version must not advance.
			return
		}
		t.replace(id, modified)
	}
}

// modifyEntry clones the entry and applies field updates relevant to its
// kind; updates naming fields the kind does not carry are ignored.
func modifyEntry(e Entry, m *Modification) Entry {
	clone := e.Clone()
	if m == nil {
		return clone
	}
	switch entry := clone.(type) {
	case *Module:
		if m.Module != nil && !m.Module.Remove {
			entry.ModuleName = m.Module.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.Reexport = m.Reexport.apply(entry.Reexport)
	case *Type:
		if m.Module != nil && !m.Module.Remove {
			entry.DefinedIn = m.Module.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.Reexport = m.Reexport.apply(entry.Reexport)
		entry.ExternalID = m.ExternalID.apply(entry.ExternalID)
		entry.Params = applyArgumentUpdates(entry.Params, m.Arguments)
	case *Constructor:
		if m.Module != nil && !m.Module.Remove {
			entry.DefinedIn = m.Module.Value
		}
		if m.ReturnType != nil && !m.ReturnType.Remove {
			entry.ReturnType = m.ReturnType.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.Reexport = m.Reexport.apply(entry.Reexport)
		entry.ExternalID = m.ExternalID.apply(entry.ExternalID)
		entry.Arguments = applyArgumentUpdates(entry.Arguments, m.Arguments)
	case *Method:
		if m.Module != nil && !m.Module.Remove {
			entry.DefinedIn = m.Module.Value
		}
		if m.SelfType != nil && !m.SelfType.Remove {
			entry.SelfType = m.SelfType.Value
		}
		if m.ReturnType != nil && !m.ReturnType.Remove {
			entry.ReturnType = m.ReturnType.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.Reexport = m.Reexport.apply(entry.Reexport)
		entry.ExternalID = m.ExternalID.apply(entry.ExternalID)
		entry.Arguments = applyArgumentUpdates(entry.Arguments, m.Arguments)
	case *Conversion:
		if m.Module != nil && !m.Module.Remove {
			entry.DefinedIn = m.Module.Value
		}
		if m.SelfType != nil && !m.SelfType.Remove {
			entry.SourceType = m.SelfType.Value
		}
		if m.ReturnType != nil && !m.ReturnType.Remove {
			entry.ReturnType = m.ReturnType.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.ExternalID = m.ExternalID.apply(entry.ExternalID)
		entry.Arguments = applyArgumentUpdates(entry.Arguments, m.Arguments)
	case *Function:
		if m.Module != nil && !m.Module.Remove {
			entry.DefinedIn = m.Module.Value
		}
		if m.ReturnType != nil && !m.ReturnType.Remove {
			entry.ReturnType = m.ReturnType.Value
		}
		if m.Scope != nil {
			entry.FunctionScope = m.Scope.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.ExternalID = m.ExternalID.apply(entry.ExternalID)
		entry.Arguments = applyArgumentUpdates(entry.Arguments, m.Arguments)
	case *Local:
		if m.Module != nil && !m.Module.Remove {
			entry.DefinedIn = m.Module.Value
		}
		if m.ReturnType != nil && !m.ReturnType.Remove {
			entry.ReturnType = m.ReturnType.Value
		}
		if m.Scope != nil {
			entry.LocalScope = m.Scope.Value
		}
		entry.Documentation = m.Documentation.apply(entry.Documentation)
		entry.ExternalID = m.ExternalID.apply(entry.ExternalID)
	}
	return clone
}

func applyArgumentUpdates(args []Argument, updates []ArgumentUpdate) []Argument {
	if len(updates) == 0 {
		return args
	}
	out := append([]Argument(nil), args...)
	for _, u := range updates {
		switch u.Kind {
		case TreeAdd:
			if u.Argument == nil || u.Index < 0 || u.Index > len(out) {
				continue
			}
			out = append(out[:u.Index], append([]Argument{*u.Argument}, out[u.Index:]...)...)
		case TreeRemove:
			if u.Index < 0 || u.Index >= len(out) {
				continue
			}
			out = append(out[:u.Index], out[u.Index+1:]...)
		case TreeModify:
			if u.Index < 0 || u.Index >= len(out) {
				continue
			}
			arg := out[u.Index]
			if u.Name != nil {
				arg.Name = *u.Name
			}
			if u.Type != nil {
				arg.Type = *u.Type
			}
			if u.IsSuspended != nil {
				arg.IsSuspended = *u.IsSuspended
			}
			if u.HasDefault != nil {
				arg.HasDefault = *u.HasDefault
			}
			arg.DefaultValue = u.DefaultValue.apply(arg.DefaultValue)
			out[u.Index] = arg
		}
	}
	return out
}
