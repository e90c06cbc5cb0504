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

// Package suggestions maintains the incrementally updated database of
// declarations discovered from compilation: modules, types, constructors,
// methods, conversions, functions, and local bindings. Entries are keyed by
// structural identity so a declaration is never indexed twice, and every
// effective mutation advances a monotone version observed by subscribers.
package suggestions

import (
	"fmt"

	"github.com/google/uuid"
	"lumenlang.dev/runtime/protocol"
)

// Kind discriminates the entry variants.
type Kind string

const (
	KindModule      Kind = "Module"
	KindType        Kind = "Type"
	KindConstructor Kind = "Constructor"
	KindMethod      Kind = "Method"
	KindConversion  Kind = "Conversion"
	KindFunction    Kind = "Function"
	KindLocal       Kind = "Local"
)

// Argument describes one parameter of a callable entry.
type Argument struct {
	Name         string  `json:"name"`
	Type         string  `json:"reprType"`
	IsSuspended  bool    `json:"isSuspended"`
	HasDefault   bool    `json:"hasDefault"`
	DefaultValue *string `json:"defaultValue,omitempty"`
}

// Scope is the lexical extent of a function or local binding.
type Scope struct {
	Start protocol.Position `json:"start"`
	End   protocol.Position `json:"end"`
}

// Contains reports whether the position falls inside the scope.
func (s Scope) Contains(p protocol.Position) bool {
	return protocol.Range{Start: s.Start, End: s.End}.Contains(p)
}

// Entry is one suggestion. Variants are tagged structs; code that needs
// per-kind behavior switches exhaustively on the concrete type.
type Entry interface {
	Kind() Kind
	// Module returns the defining module of the entry (for a Module entry,
	// its own name).
	Module() string
	// Name returns the declared name.
	Name() string
	// StructuralKey identifies the entry so duplicates are never indexed
	// twice.
	StructuralKey() string
	// Clone deep-copies the entry.
	Clone() Entry
}

// Module is a module declaration.
type Module struct {
	ModuleName    string  `json:"module"`
	Documentation *string `json:"documentation,omitempty"`
	Reexport      *string `json:"reexport,omitempty"`
}

func (m *Module) Kind() Kind     { return KindModule }
func (m *Module) Module() string { return m.ModuleName }
func (m *Module) Name() string   { return m.ModuleName }
func (m *Module) StructuralKey() string {
	return m.ModuleName
}
func (m *Module) Clone() Entry {
	c := *m
	return &c
}

// Type is a type declaration.
type Type struct {
	DefinedIn     string     `json:"module"`
	TypeName      string     `json:"name"`
	Params        []Argument `json:"params"`
	ParentType    *string    `json:"parentType,omitempty"`
	Reexport      *string    `json:"reexport,omitempty"`
	Documentation *string    `json:"documentation,omitempty"`
	ExternalID    *uuid.UUID `json:"externalId,omitempty"`
}

func (t *Type) Kind() Kind     { return KindType }
func (t *Type) Module() string { return t.DefinedIn }
func (t *Type) Name() string   { return t.TypeName }
func (t *Type) StructuralKey() string {
	return fmt.Sprintf("type:%s:%s", t.DefinedIn, t.TypeName)
}
func (t *Type) Clone() Entry {
	c := *t
	c.Params = append([]Argument(nil), t.Params...)
	return &c
}

// Constructor is a type constructor.
type Constructor struct {
	DefinedIn       string     `json:"module"`
	ConstructorName string     `json:"name"`
	Arguments       []Argument `json:"arguments"`
	ReturnType      string     `json:"returnType"`
	Reexport        *string    `json:"reexport,omitempty"`
	Documentation   *string    `json:"documentation,omitempty"`
	ExternalID      *uuid.UUID `json:"externalId,omitempty"`
	Annotations     []string   `json:"annotations"`
}

func (c *Constructor) Kind() Kind     { return KindConstructor }
func (c *Constructor) Module() string { return c.DefinedIn }
func (c *Constructor) Name() string   { return c.ConstructorName }
func (c *Constructor) StructuralKey() string {
	return fmt.Sprintf("constructor:%s:%s", c.DefinedIn, c.ConstructorName)
}
func (c *Constructor) Clone() Entry {
	cl := *c
	cl.Arguments = append([]Argument(nil), c.Arguments...)
	cl.Annotations = append([]string(nil), c.Annotations...)
	return &cl
}

// Method is a method defined on a type, static or instance.
type Method struct {
	DefinedIn     string     `json:"module"`
	MethodName    string     `json:"name"`
	Arguments     []Argument `json:"arguments"`
	SelfType      string     `json:"selfType"`
	ReturnType    string     `json:"returnType"`
	IsStatic      bool       `json:"isStatic"`
	Reexport      *string    `json:"reexport,omitempty"`
	Documentation *string    `json:"documentation,omitempty"`
	ExternalID    *uuid.UUID `json:"externalId,omitempty"`
	Annotations   []string   `json:"annotations"`
}

func (m *Method) Kind() Kind     { return KindMethod }
func (m *Method) Module() string { return m.DefinedIn }
func (m *Method) Name() string   { return m.MethodName }
func (m *Method) StructuralKey() string {
	return fmt.Sprintf("method:%s:%s:%s:%t", m.DefinedIn, m.SelfType, m.MethodName, m.IsStatic)
}
func (m *Method) Clone() Entry {
	c := *m
	c.Arguments = append([]Argument(nil), m.Arguments...)
	c.Annotations = append([]string(nil), m.Annotations...)
	return &c
}

// Conversion converts values of a source type into the return type.
type Conversion struct {
	DefinedIn     string     `json:"module"`
	Arguments     []Argument `json:"arguments"`
	SourceType    string     `json:"sourceType"`
	ReturnType    string     `json:"returnType"`
	Documentation *string    `json:"documentation,omitempty"`
	ExternalID    *uuid.UUID `json:"externalId,omitempty"`
}

func (c *Conversion) Kind() Kind     { return KindConversion }
func (c *Conversion) Module() string { return c.DefinedIn }
func (c *Conversion) Name() string {
	return fmt.Sprintf("%s.from", c.ReturnType)
}
func (c *Conversion) StructuralKey() string {
	return fmt.Sprintf("conversion:%s:%s:%s", c.DefinedIn, c.SourceType, c.ReturnType)
}
func (c *Conversion) Clone() Entry {
	cl := *c
	cl.Arguments = append([]Argument(nil), c.Arguments...)
	return &cl
}

// Function is a module-level or nested function with a lexical scope.
type Function struct {
	DefinedIn     string     `json:"module"`
	FunctionName  string     `json:"name"`
	Arguments     []Argument `json:"arguments"`
	ReturnType    string     `json:"returnType"`
	FunctionScope Scope      `json:"scope"`
	Documentation *string    `json:"documentation,omitempty"`
	ExternalID    *uuid.UUID `json:"externalId,omitempty"`
}

func (f *Function) Kind() Kind     { return KindFunction }
func (f *Function) Module() string { return f.DefinedIn }
func (f *Function) Name() string   { return f.FunctionName }
func (f *Function) StructuralKey() string {
	return fmt.Sprintf("function:%s:%s:%d:%d:%d:%d", f.DefinedIn, f.FunctionName,
		f.FunctionScope.Start.Line, f.FunctionScope.Start.Character,
		f.FunctionScope.End.Line, f.FunctionScope.End.Character)
}
func (f *Function) Clone() Entry {
	c := *f
	c.Arguments = append([]Argument(nil), f.Arguments...)
	return &c
}

// Local is a local binding with a lexical scope.
type Local struct {
	DefinedIn     string     `json:"module"`
	LocalName     string     `json:"name"`
	ReturnType    string     `json:"returnType"`
	LocalScope    Scope      `json:"scope"`
	Documentation *string    `json:"documentation,omitempty"`
	ExternalID    *uuid.UUID `json:"externalId,omitempty"`
}

func (l *Local) Kind() Kind     { return KindLocal }
func (l *Local) Module() string { return l.DefinedIn }
func (l *Local) Name() string   { return l.LocalName }
func (l *Local) StructuralKey() string {
	return fmt.Sprintf("local:%s:%s:%d:%d:%d:%d", l.DefinedIn, l.LocalName,
		l.LocalScope.Start.Line, l.LocalScope.Start.Character,
		l.LocalScope.End.Line, l.LocalScope.End.Character)
}
func (l *Local) Clone() Entry {
	c := *l
	return &c
}

// selfTypeOf returns the dispatch type of an entry, when it has one. For
// conversions this is the source type.
func selfTypeOf(e Entry) (string, bool) {
	switch entry := e.(type) {
	case *Method:
		return entry.SelfType, true
	case *Conversion:
		return entry.SourceType, true
	default:
		return "", false
	}
}

// returnTypeOf returns the entry's return type, when it has one.
func returnTypeOf(e Entry) (string, bool) {
	switch entry := e.(type) {
	case *Constructor:
		return entry.ReturnType, true
	case *Method:
		return entry.ReturnType, true
	case *Conversion:
		return entry.ReturnType, true
	case *Function:
		return entry.ReturnType, true
	case *Local:
		return entry.ReturnType, true
	default:
		return "", false
	}
}

// scopeOf returns the entry's lexical scope, when it has one.
func scopeOf(e Entry) (Scope, bool) {
	switch entry := e.(type) {
	case *Function:
		return entry.FunctionScope, true
	case *Local:
		return entry.LocalScope, true
	default:
		return Scope{}, false
	}
}
