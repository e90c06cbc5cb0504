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
package protocol

import (
	"encoding/json"
	"fmt"
)

// MethodPointer is an immutable reference to a method definition in source.
type MethodPointer struct {
	Module        string `json:"module"`
	DefinedOnType string `json:"definedOnType"`
	Name          string `json:"name"`
}

// MethodCall is the resolved method pointer at a call site, plus the indices
// of arguments that have not been supplied yet.
type MethodCall struct {
	MethodPointer       MethodPointer `json:"methodPointer"`
	NotAppliedArguments []int         `json:"notAppliedArguments"`
}

// Equal reports whether two method calls resolve identically.
func (m *MethodCall) Equal(o *MethodCall) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.MethodPointer != o.MethodPointer {
		return false
	}
	if len(m.NotAppliedArguments) != len(o.NotAppliedArguments) {
		return false
	}
	for i, a := range m.NotAppliedArguments {
		if o.NotAppliedArguments[i] != a {
			return false
		}
	}
	return true
}

// StackItem is one frame of an execution stack: either an explicit top-level
// call or a descent into a called expression.
type StackItem interface {
	stackItem()
}

// ExplicitCall is the bottom frame of a stack: a direct invocation of a
// method with literal argument expressions.
type ExplicitCall struct {
	MethodPointer                  MethodPointer `json:"methodPointer"`
	ThisArgumentExpression         *string       `json:"thisArgumentExpression,omitempty"`
	PositionalArgumentsExpressions []string      `json:"positionalArgumentsExpressions"`
}

func (ExplicitCall) stackItem() {}

// LocalCall descends into the function called at the given expression of the
// frame below it.
type LocalCall struct {
	ExpressionID ExpressionID `json:"expressionId"`
}

func (LocalCall) stackItem() {}

const (
	stackItemExplicitCall = "ExplicitCall"
	stackItemLocalCall    = "LocalCall"
)

// StackItemBox wraps a StackItem for JSON transport using a "type"
// discriminator field.
type StackItemBox struct {
	Item StackItem
}

func (b StackItemBox) MarshalJSON() ([]byte, error) {
	switch it := b.Item.(type) {
	case ExplicitCall:
		return json.Marshal(struct {
			Type string `json:"type"`
			ExplicitCall
		}{stackItemExplicitCall, it})
	case LocalCall:
		return json.Marshal(struct {
			Type string `json:"type"`
			LocalCall
		}{stackItemLocalCall, it})
	case nil:
		return nil, fmt.Errorf("cannot marshal empty stack item")
	default:
		return nil, fmt.Errorf("unknown stack item type %T", it)
	}
}

func (b *StackItemBox) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case stackItemExplicitCall:
		var it ExplicitCall
		if err := json.Unmarshal(data, &it); err != nil {
			return err
		}
		b.Item = it
	case stackItemLocalCall:
		var it LocalCall
		if err := json.Unmarshal(data, &it); err != nil {
			return err
		}
		b.Item = it
	default:
		return fmt.Errorf("unknown stack item type %q", head.Type)
	}
	return nil
}
