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

// Package evaluator defines the contract between the runtime and the Lumen
// compiler/interpreter. The runtime treats the evaluator as a black box: it
// submits jobs carrying a stack and a borrowed cache snapshot, and consumes
// the evaluation events streamed back. The evaluator must honor job
// cancellation and must not retain references to caller-owned state after a
// job ends.
package evaluator

import (
	"context"

	"lumenlang.dev/runtime/protocol"
)

// Cached is one borrowed cache entry handed to the evaluator with a job.
type Cached struct {
	Module     string
	Type       *string
	MethodCall *protocol.MethodCall
	// Value is the evaluator's own representation of the computed value.
	// The runtime stores it opaquely and hands it back for visualization
	// preprocessing.
	Value any
}

// Snapshot is a point-in-time copy of a context's value cache. The evaluator
// may read it for the duration of one job only.
type Snapshot map[protocol.ExpressionID]Cached

// Job describes one evaluation run of a context's stack.
type Job struct {
	ContextID   protocol.ContextID
	Stack       []protocol.StackItem // bottom frame first
	Cache       Snapshot
	Environment protocol.ExecutionEnvironment
}

// VisualizationJob computes a binary payload from a cached value by applying
// a preprocessing expression.
type VisualizationJob struct {
	ContextID       protocol.ContextID
	VisualizationID protocol.VisualizationID
	ExpressionID    protocol.ExpressionID
	Module          string
	Expression      protocol.VisualizationExpression
	// Value is the cached value of the target expression.
	Value any
	// Cache gives oneshot expressions access to the lexical bindings
	// currently cached around the target expression.
	Cache Snapshot
}

// Evaluator drives evaluation for the runtime. Implementations are blocking;
// the runtime calls them from dedicated worker goroutines.
type Evaluator interface {
	// Run evaluates the job's stack, sending events through emit as they
	// are produced. It returns when evaluation finishes, fails, or ctx is
	// cancelled. The terminal Complete/Failed event is the evaluator's
	// responsibility except on cancellation: the runtime reports an
	// interrupt command's cancellation itself, and drops the events of a job
	// it cancelled to start another.
	Run(ctx context.Context, job Job, emit func(Event))

	// CompileVisualization validates a preprocessing expression without
	// running it. A non-nil diagnostic rejects the expression.
	CompileVisualization(cfg protocol.VisualizationConfiguration) *protocol.Diagnostic

	// RunVisualization applies the preprocessing expression to the job's
	// value and returns the payload bytes, or a diagnostic on failure.
	RunVisualization(ctx context.Context, job VisualizationJob) ([]byte, *protocol.Diagnostic)
}

// ModuleResolver maps content paths to module names. It is read-only and
// owned outside the runtime core.
type ModuleResolver interface {
	ResolveModule(path string) (string, bool)
}
