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
	"context"
	"errors"
	"testing"
	"time"

	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/evaluator/evaltest"
	"lumenlang.dev/runtime/protocol"
)

// emitted is one recorded notification.
type emitted struct {
	kind    string
	ctx     protocol.ContextID
	updates []protocol.ExpressionUpdate
	message string
	diags   []protocol.Diagnostic
	vc      protocol.VisualizationContext
	payload []byte
}

// chanEmitter records notifications on a channel so tests can assert on
// their order.
type chanEmitter struct {
	events chan emitted
}

func newChanEmitter() *chanEmitter {
	return &chanEmitter{events: make(chan emitted, 256)}
}

func (e *chanEmitter) ExpressionUpdates(ctx protocol.ContextID, updates []protocol.ExpressionUpdate) {
	e.events <- emitted{kind: "updates", ctx: ctx, updates: updates}
}

func (e *chanEmitter) ExecutionComplete(ctx protocol.ContextID) {
	e.events <- emitted{kind: "complete", ctx: ctx}
}

func (e *chanEmitter) ExecutionFailed(ctx protocol.ContextID, message string) {
	e.events <- emitted{kind: "failed", ctx: ctx, message: message}
}

func (e *chanEmitter) ExecutionStatus(ctx protocol.ContextID, diags []protocol.Diagnostic) {
	e.events <- emitted{kind: "status", ctx: ctx, diags: diags}
}

func (e *chanEmitter) VisualizationUpdate(vc protocol.VisualizationContext, payload []byte) {
	e.events <- emitted{kind: "viz", vc: vc, payload: payload}
}

func (e *chanEmitter) VisualizationFailed(vc protocol.VisualizationContext, message string, _ *protocol.Diagnostic) {
	e.events <- emitted{kind: "vizfailed", vc: vc, message: message}
}

// next waits for the next recorded notification.
func (e *chanEmitter) next(t *testing.T) emitted {
	t.Helper()
	select {
	case ev := <-e.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a notification")
		return emitted{}
	}
}

// expect waits for the next notification and asserts its kind.
func (e *chanEmitter) expect(t *testing.T, kind string) emitted {
	t.Helper()
	ev := e.next(t)
	if ev.kind != kind {
		t.Fatalf("expected %q notification, got %q (%+v)", kind, ev.kind, ev)
	}
	return ev
}

// expectUpdate waits for an expression_updates batch for one expression.
func (e *chanEmitter) expectUpdate(t *testing.T, id protocol.ExpressionID) protocol.ExpressionUpdate {
	t.Helper()
	ev := e.expect(t, "updates")
	if len(ev.updates) != 1 {
		t.Fatalf("expected a single update, got %d", len(ev.updates))
	}
	if ev.updates[0].ExpressionID != id {
		t.Fatalf("expected update for %s, got %s", id, ev.updates[0].ExpressionID)
	}
	return ev.updates[0]
}

func computed(id protocol.ExpressionID, typeName string, value any) evaluator.ExpressionComputed {
	return evaluator.ExpressionComputed{
		ExpressionID: id,
		Module:       "Test.Main",
		Type:         strptr(typeName),
		Value:        value,
	}
}

func newTestActor(t *testing.T, eval evaluator.Evaluator, emitter Emitter) (*Registry, *Actor) {
	t.Helper()
	registry := NewRegistry(eval, emitter)
	t.Cleanup(registry.Shutdown)
	id, err := registry.Create(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	actor, err := registry.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return registry, actor
}

func TestPushPopScenario(t *testing.T) {
	idX := protocol.NewExpressionID()
	idY := protocol.NewExpressionID()
	idZ := protocol.NewExpressionID()
	innerY := protocol.NewExpressionID()
	innerZ := protocol.NewExpressionID()

	fooCall := &protocol.MethodCall{
		MethodPointer: protocol.MethodPointer{Module: "Test.Main", DefinedOnType: "Number", Name: "foo"},
	}

	topRuns := 0
	eval := &evaltest.Scripted{}
	eval.RunFunc = func(_ context.Context, job evaluator.Job, emit func(evaluator.Event)) {
		switch len(job.Stack) {
		case 1:
			topRuns++
			if topRuns == 1 {
				emit(computed(idX, "Number", 6))
				emit(computed(idY, "Number", 45))
				emit(computed(idZ, "Number", 50))
			} else {
				// Re-run after the descent was popped: the call site of y
				// now carries its resolved method pointer.
				emit(evaluator.ExpressionCacheHit{ExpressionID: idX})
				yCall := computed(idY, "Number", 45)
				yCall.MethodCall = fooCall
				emit(yCall)
				emit(evaluator.ExpressionCacheHit{ExpressionID: idZ})
			}
		case 2:
			emit(computed(innerY, "Number", 9))
			emit(computed(innerZ, "Number", 45))
		}
		emit(evaluator.Complete{})
	}

	emitter := newChanEmitter()
	_, actor := newTestActor(t, eval, emitter)

	// Explicit call computes the whole of main.
	if err := actor.Push(mainCall()); err != nil {
		t.Fatalf("push: %v", err)
	}
	for _, id := range []protocol.ExpressionID{idX, idY, idZ} {
		update := emitter.expectUpdate(t, id)
		if update.FromCache {
			t.Errorf("fresh computation of %s must not be from cache", id)
		}
	}
	emitter.expect(t, "complete")

	// Descend into y's call.
	if err := actor.Push(protocol.LocalCall{ExpressionID: idY}); err != nil {
		t.Fatalf("push local: %v", err)
	}
	emitter.expectUpdate(t, innerY)
	emitter.expectUpdate(t, innerZ)
	emitter.expect(t, "complete")

	// Pop back out: y is re-reported with its resolved method call, cached
	// neighbors come back as cache hits.
	if err := actor.Pop(); err != nil {
		t.Fatalf("pop: %v", err)
	}
	hit := emitter.expectUpdate(t, idX)
	if !hit.FromCache {
		t.Error("x must come back from cache")
	}
	yUpdate := emitter.expectUpdate(t, idY)
	if yUpdate.FromCache {
		t.Error("y must be recomputed")
	}
	if !yUpdate.MethodCall.Equal(fooCall) {
		t.Errorf("y must carry the Number.foo method call, got %+v", yUpdate.MethodCall)
	}
	emitter.expectUpdate(t, idZ)
	emitter.expect(t, "complete")

	// Popping the explicit call leaves the context idle.
	if err := actor.Pop(); err != nil {
		t.Fatalf("pop: %v", err)
	}
	if err := actor.Pop(); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack, got %v", err)
	}
}

func TestQuietReExecutionSuppressesUnchangedTypes(t *testing.T) {
	id := protocol.NewExpressionID()
	eval := &evaltest.Scripted{}
	eval.RunFunc = evaltest.Sequence(computed(id, "Number", 1337), evaluator.Complete{})

	emitter := newChanEmitter()
	_, actor := newTestActor(t, eval, emitter)

	if err := actor.Push(mainCall()); err != nil {
		t.Fatalf("push: %v", err)
	}
	emitter.expectUpdate(t, id)
	emitter.expect(t, "complete")

	// Same type again: the update is suppressed, completion still arrives.
	if err := actor.Recompute(nil, nil); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	emitter.expect(t, "complete")

	// A type change is reported exactly once.
	eval.SetRunFunc(evaltest.Sequence(computed(id, "Text", "Hi"), evaluator.Complete{}))
	if err := actor.Recompute(nil, nil); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	update := emitter.expectUpdate(t, id)
	if update.Type == nil || *update.Type != "Text" {
		t.Errorf("expected Text, got %v", update.Type)
	}
	emitter.expect(t, "complete")
}

func TestRecomputeOnIdleContext(t *testing.T) {
	emitter := newChanEmitter()
	_, actor := newTestActor(t, &evaltest.Scripted{}, emitter)
	if err := actor.Recompute(nil, nil); !errors.Is(err, ErrEmptyStack) {
		t.Fatalf("expected ErrEmptyStack, got %v", err)
	}
}

func TestPushLocalCallRequiresCachedExpression(t *testing.T) {
	emitter := newChanEmitter()
	_, actor := newTestActor(t, &evaltest.Scripted{}, emitter)

	if err := actor.Push(mainCall()); err != nil {
		t.Fatalf("push: %v", err)
	}
	emitter.expect(t, "complete")

	err := actor.Push(protocol.LocalCall{ExpressionID: protocol.NewExpressionID()})
	if !errors.Is(err, ErrInvalidStackItem) {
		t.Fatalf("expected ErrInvalidStackItem, got %v", err)
	}
}

func TestInterruptCancelsInFlightEvaluation(t *testing.T) {
	started := make(chan struct{}, 1)
	eval := &evaltest.Scripted{}
	eval.RunFunc = evaltest.Blocking(started)

	emitter := newChanEmitter()
	_, actor := newTestActor(t, eval, emitter)

	if err := actor.Push(mainCall()); err != nil {
		t.Fatalf("push: %v", err)
	}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("evaluator never started")
	}

	if err := actor.Interrupt(); err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	failed := emitter.expect(t, "failed")
	if failed.message != "Execution interrupted." {
		t.Errorf("unexpected failure message %q", failed.message)
	}

	// A subsequent recompute runs normally.
	id := protocol.NewExpressionID()
	eval.SetRunFunc(evaltest.Sequence(computed(id, "Number", 1), evaluator.Complete{}))
	if err := actor.Recompute(nil, nil); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	emitter.expectUpdate(t, id)
	emitter.expect(t, "complete")
}

func TestSetEnvironmentClearsCacheAndRecomputes(t *testing.T) {
	id := protocol.NewExpressionID()
	eval := &evaltest.Scripted{}
	eval.RunFunc = evaltest.Sequence(computed(id, "Number", 1), evaluator.Complete{})

	emitter := newChanEmitter()
	_, actor := newTestActor(t, eval, emitter)

	if err := actor.Push(mainCall()); err != nil {
		t.Fatalf("push: %v", err)
	}
	emitter.expectUpdate(t, id)
	emitter.expect(t, "complete")

	if err := actor.SetEnvironment(protocol.EnvironmentLive); err != nil {
		t.Fatalf("set environment: %v", err)
	}
	// The cache was cleared, so the unchanged type is reported again.
	emitter.expectUpdate(t, id)
	emitter.expect(t, "complete")

	jobs := eval.Jobs()
	last := jobs[len(jobs)-1]
	if last.Environment != protocol.EnvironmentLive {
		t.Errorf("expected Live environment, got %s", last.Environment)
	}
	if len(last.Cache) != 0 {
		t.Errorf("expected an empty cache snapshot, got %d entries", len(last.Cache))
	}

	// Setting the same environment again is a no-op.
	before := len(eval.Jobs())
	if err := actor.SetEnvironment(protocol.EnvironmentLive); err != nil {
		t.Fatalf("set environment: %v", err)
	}
	if len(eval.Jobs()) != before {
		t.Error("unchanged environment must not restart evaluation")
	}
}

func TestForkIsIndependent(t *testing.T) {
	id := protocol.NewExpressionID()
	eval := &evaltest.Scripted{}
	eval.RunFunc = evaltest.Sequence(computed(id, "Number", 1), evaluator.Complete{})

	emitter := newChanEmitter()
	registry, actor := newTestActor(t, eval, emitter)

	if err := actor.Push(mainCall()); err != nil {
		t.Fatalf("push: %v", err)
	}
	emitter.expectUpdate(t, id)
	emitter.expect(t, "complete")

	forked, err := registry.Fork(actor.ID())
	if err != nil {
		t.Fatalf("fork: %v", err)
	}
	forkedActor, err := registry.Get(forked)
	if err != nil {
		t.Fatalf("get forked: %v", err)
	}

	// Clearing the fork's cache must not touch the original.
	all := &protocol.InvalidatedExpressions{All: true}
	if err := forkedActor.Recompute(all, nil); err != nil {
		t.Fatalf("recompute fork: %v", err)
	}
	emitter.expectUpdate(t, id)
	emitter.expect(t, "complete")

	if err := actor.Recompute(nil, nil); err != nil {
		t.Fatalf("recompute original: %v", err)
	}
	emitter.expect(t, "complete")

	jobs := eval.Jobs()
	forkJob := jobs[len(jobs)-2]
	originalJob := jobs[len(jobs)-1]
	if len(forkJob.Cache) != 0 {
		t.Errorf("fork's recompute must see a cleared cache, got %d entries", len(forkJob.Cache))
	}
	if len(originalJob.Cache) != 1 {
		t.Errorf("original's cache must be intact, got %d entries", len(originalJob.Cache))
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	registry := NewRegistry(&evaltest.Scripted{}, newChanEmitter())
	t.Cleanup(registry.Shutdown)

	first, err := registry.Create(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := registry.Create(&first)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first != second {
		t.Errorf("expected %s back, got %s", first, second)
	}
	if len(registry.List()) != 1 {
		t.Errorf("expected a single context, got %d", len(registry.List()))
	}
}

func TestDestroyRejectsLaterCommands(t *testing.T) {
	registry := NewRegistry(&evaltest.Scripted{}, newChanEmitter())
	t.Cleanup(registry.Shutdown)

	id, err := registry.Create(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	actor, err := registry.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	registry.Destroy(id)
	// Idempotent after the first call.
	registry.Destroy(id)

	if _, err := registry.Get(id); !errors.Is(err, ErrContextNotFound) {
		t.Fatalf("expected ErrContextNotFound, got %v", err)
	}
	if err := actor.Push(mainCall()); !errors.Is(err, ErrContextDestroyed) {
		t.Fatalf("expected ErrContextDestroyed, got %v", err)
	}
}
