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
package evaluator

import "lumenlang.dev/runtime/protocol"

// Event is one evaluation event streamed back to the owning context actor.
type Event interface {
	evaluationEvent()
}

// ExpressionComputed reports a freshly computed expression result.
type ExpressionComputed struct {
	ExpressionID protocol.ExpressionID
	Module       string
	Type         *string
	MethodCall   *protocol.MethodCall
	Profiling    []protocol.ProfilingInfo
	Payload      protocol.ExpressionUpdatePayload
	Value        any
}

func (ExpressionComputed) evaluationEvent() {}

// ExpressionCacheHit reports that the evaluator reused the caller's cached
// result for the expression without recomputation.
type ExpressionCacheHit struct {
	ExpressionID protocol.ExpressionID
}

func (ExpressionCacheHit) evaluationEvent() {}

// Pending marks expressions whose computation is still in flight.
type Pending struct {
	ExpressionIDs []protocol.ExpressionID
	Message       *string
}

func (Pending) evaluationEvent() {}

// DiagnosticEvent carries an evaluator-reported warning or error.
type DiagnosticEvent struct {
	Diagnostic protocol.Diagnostic
}

func (DiagnosticEvent) evaluationEvent() {}

// Complete terminates a successful run. Mutually exclusive with Failed.
type Complete struct{}

func (Complete) evaluationEvent() {}

// Failed terminates an unsuccessful run, including evaluator panics.
type Failed struct {
	Message string
}

func (Failed) evaluationEvent() {}
