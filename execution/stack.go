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
	"errors"

	"lumenlang.dev/runtime/protocol"
)

// ErrEmptyStack is returned by operations that need at least one frame.
var ErrEmptyStack = errors.New("execution stack is empty")

// ErrInvalidStackItem is returned when a pushed frame violates the stack
// shape: the bottom frame must be an explicit call, every frame above it a
// local call into the frame below.
var ErrInvalidStackItem = errors.New("invalid stack item")

// Stack is the ordered sequence of in-flight frames of one context, bottom
// frame first. It is owned by the context actor.
type Stack struct {
	items []protocol.StackItem
}

// NewStack creates an empty stack.
func NewStack() *Stack { return &Stack{} }

// Push validates and appends a frame.
func (s *Stack) Push(item protocol.StackItem) error {
	switch item.(type) {
	case protocol.ExplicitCall:
		if len(s.items) != 0 {
			return ErrInvalidStackItem
		}
	case protocol.LocalCall:
		if len(s.items) == 0 {
			return ErrInvalidStackItem
		}
	default:
		return ErrInvalidStackItem
	}
	s.items = append(s.items, item)
	return nil
}

// Pop removes and returns the top frame.
func (s *Stack) Pop() (protocol.StackItem, error) {
	if len(s.items) == 0 {
		return nil, ErrEmptyStack
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, nil
}

// Top returns the top frame without removing it.
func (s *Stack) Top() (protocol.StackItem, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[len(s.items)-1], true
}

// Empty reports whether the stack has no frames; an empty stack means the
// context is idle.
func (s *Stack) Empty() bool { return len(s.items) == 0 }

// Len reports the number of frames.
func (s *Stack) Len() int { return len(s.items) }

// Items returns a copy of the frames, bottom first.
func (s *Stack) Items() []protocol.StackItem {
	return append([]protocol.StackItem(nil), s.items...)
}

// ExplicitModule returns the module of the bottom explicit call, if any.
func (s *Stack) ExplicitModule() (string, bool) {
	if len(s.items) == 0 {
		return "", false
	}
	call, ok := s.items[0].(protocol.ExplicitCall)
	if !ok {
		return "", false
	}
	return call.MethodPointer.Module, true
}

// Clone deep-copies the stack for a context fork. Frames are value types.
func (s *Stack) Clone() *Stack {
	return &Stack{items: append([]protocol.StackItem(nil), s.items...)}
}
