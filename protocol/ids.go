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

import "github.com/google/uuid"

// ContextID identifies a single execution context. Contexts are created and
// destroyed by explicit commands; the id is opaque to the front-end.
type ContextID uuid.UUID

// NewContextID allocates a fresh context id.
func NewContextID() ContextID { return ContextID(uuid.New()) }

func (id ContextID) String() string { return uuid.UUID(id).String() }

// MarshalText implements encoding.TextMarshaler so ids serialize as
// canonical UUID strings in JSON payloads and map keys.
func (id ContextID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ContextID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// ExpressionID identifies an expression node in a loaded module. It is
// emitted by the parser and remains stable across edits that do not touch
// the expression's subtree.
type ExpressionID uuid.UUID

// NewExpressionID allocates a fresh expression id.
func NewExpressionID() ExpressionID { return ExpressionID(uuid.New()) }

func (id ExpressionID) String() string { return uuid.UUID(id).String() }

func (id ExpressionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ExpressionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// VisualizationID identifies a visualization attached to an expression
// within one execution context.
type VisualizationID uuid.UUID

// NewVisualizationID allocates a fresh visualization id.
func NewVisualizationID() VisualizationID { return VisualizationID(uuid.New()) }

func (id VisualizationID) String() string { return uuid.UUID(id).String() }

func (id VisualizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *VisualizationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// RequestID correlates a reply with the request that caused it.
// Notifications carry no request id.
type RequestID = uuid.UUID
