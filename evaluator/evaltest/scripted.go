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

// Package evaltest provides a programmable evaluator for tests and the
// serve self-test. Scripts decide, per job, which events to emit; blocking
// scripts model long-running evaluation for interruption tests.
package evaltest

import (
	"context"
	"fmt"
	"sync"

	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/protocol"
)

// Scripted is an evaluator.Evaluator whose behavior is supplied by the test.
// Zero-value methods fall back to benign defaults: runs complete
// immediately, every visualization expression compiles, and payloads are the
// fmt rendering of the cached value.
type Scripted struct {
	mu sync.Mutex

	// RunFunc handles evaluation jobs. Defaults to emitting Complete.
	RunFunc func(ctx context.Context, job evaluator.Job, emit func(evaluator.Event))

	// CompileFunc validates visualization expressions. Defaults to accept.
	CompileFunc func(cfg protocol.VisualizationConfiguration) *protocol.Diagnostic

	// VisualizationFunc computes payloads. Defaults to fmt.Sprint(value).
	VisualizationFunc func(ctx context.Context, job evaluator.VisualizationJob) ([]byte, *protocol.Diagnostic)

	jobs    []evaluator.Job
	vizJobs []evaluator.VisualizationJob
}

var _ evaluator.Evaluator = (*Scripted)(nil)

func (s *Scripted) Run(ctx context.Context, job evaluator.Job, emit func(evaluator.Event)) {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	run := s.RunFunc
	s.mu.Unlock()
	if run != nil {
		run(ctx, job, emit)
		return
	}
	emit(evaluator.Complete{})
}

func (s *Scripted) CompileVisualization(cfg protocol.VisualizationConfiguration) *protocol.Diagnostic {
	s.mu.Lock()
	compile := s.CompileFunc
	s.mu.Unlock()
	if compile != nil {
		return compile(cfg)
	}
	return nil
}

func (s *Scripted) RunVisualization(ctx context.Context, job evaluator.VisualizationJob) ([]byte, *protocol.Diagnostic) {
	s.mu.Lock()
	s.vizJobs = append(s.vizJobs, job)
	viz := s.VisualizationFunc
	s.mu.Unlock()
	if viz != nil {
		return viz(ctx, job)
	}
	return fmt.Appendf(nil, "%v", job.Value), nil
}

// Jobs returns the evaluation jobs submitted so far.
func (s *Scripted) Jobs() []evaluator.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]evaluator.Job(nil), s.jobs...)
}

// VisualizationJobs returns the visualization jobs submitted so far.
func (s *Scripted) VisualizationJobs() []evaluator.VisualizationJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]evaluator.VisualizationJob(nil), s.vizJobs...)
}

// SetRunFunc swaps the run script between jobs.
func (s *Scripted) SetRunFunc(run func(ctx context.Context, job evaluator.Job, emit func(evaluator.Event))) {
	s.mu.Lock()
	s.RunFunc = run
	s.mu.Unlock()
}

// Sequence builds a run script that emits the given events in order and
// returns.
func Sequence(events ...evaluator.Event) func(context.Context, evaluator.Job, func(evaluator.Event)) {
	return func(_ context.Context, _ evaluator.Job, emit func(evaluator.Event)) {
		for _, ev := range events {
			emit(ev)
		}
	}
}

// Blocking builds a run script that waits for cancellation, signalling
// started once it is in flight.
func Blocking(started chan<- struct{}) func(context.Context, evaluator.Job, func(evaluator.Event)) {
	return func(ctx context.Context, _ evaluator.Job, _ func(evaluator.Event)) {
		if started != nil {
			started <- struct{}{}
		}
		<-ctx.Done()
	}
}

// StaticResolver resolves module names from a fixed path map.
type StaticResolver map[string]string

var _ evaluator.ModuleResolver = StaticResolver(nil)

func (r StaticResolver) ResolveModule(path string) (string, bool) {
	m, ok := r[path]
	return m, ok
}
