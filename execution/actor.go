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
	"fmt"

	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/metrics"
	"lumenlang.dev/runtime/protocol"
	"lumenlang.dev/runtime/visualization"
)

// ErrContextDestroyed is returned for commands submitted to a destroyed
// context.
var ErrContextDestroyed = errors.New("context destroyed")

// ErrVisualizationNotFound is returned when modifying or detaching an
// unknown visualization.
var ErrVisualizationNotFound = errors.New("visualization not found")

// VisualizationError rejects a preprocessing expression with the compiler
// diagnostic that caused the rejection.
type VisualizationError struct {
	Diagnostic protocol.Diagnostic
}

func (e *VisualizationError) Error() string {
	return fmt.Sprintf("visualization expression error: %s", e.Diagnostic.Message)
}

type cmdKind int

const (
	cmdPush cmdKind = iota
	cmdPop
	cmdRecompute
	cmdInterrupt
	cmdSetEnvironment
	cmdAttachVisualization
	cmdModifyVisualization
	cmdDetachVisualization
	cmdExecuteExpression
	cmdApplyEdit
	cmdSnapshot
)

type command struct {
	kind cmdKind

	item        protocol.StackItem
	invalidated *protocol.InvalidatedExpressions
	envOverride *protocol.ExecutionEnvironment
	env         protocol.ExecutionEnvironment

	vizID      protocol.VisualizationID
	exprID     protocol.ExpressionID
	vizModule  string
	vizExpr    protocol.VisualizationExpression
	expression string

	editModule   string
	editReplaced []protocol.ExpressionID

	reply chan cmdResult
}

type cmdResult struct {
	err   error
	state *contextState
}

// contextState is the deep-copied triple handed out on fork.
type contextState struct {
	stack *Stack
	cache *ValueCache
	viz   *visualization.Registry
	env   protocol.ExecutionEnvironment
}

type jobEvent struct {
	epoch uint64
	event evaluator.Event
}

// Actor owns one execution context: its stack, value cache, and
// visualization registry. All mutation happens on the actor's single
// goroutine; commands are processed strictly FIFO, interleaved with the
// evaluation events of the job in flight.
type Actor struct {
	id      protocol.ContextID
	eval    evaluator.Evaluator
	emitter Emitter

	commands chan *command
	events   chan jobEvent
	quit     chan struct{}
	done     chan struct{}

	// loop-owned state below; never touched from outside the run loop.
	stack     *Stack
	cache     *ValueCache
	viz       *visualization.Registry
	env       protocol.ExecutionEnvironment
	epoch     uint64
	jobCancel context.CancelFunc
}

func newActor(id protocol.ContextID, eval evaluator.Evaluator, emitter Emitter, state *contextState) *Actor {
	a := &Actor{
		id:       id,
		eval:     eval,
		emitter:  emitter,
		commands: make(chan *command, 128),
		events:   make(chan jobEvent, 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		stack:    state.stack,
		cache:    state.cache,
		viz:      state.viz,
		env:      state.env,
	}
	go a.run()
	return a
}

// ID returns the context id this actor owns.
func (a *Actor) ID() protocol.ContextID { return a.id }

func (a *Actor) run() {
	defer close(a.done)
	for {
		select {
		case cmd := <-a.commands:
			a.handle(cmd)
		case ev := <-a.events:
			a.handleEvent(ev)
		case <-a.quit:
			a.cancelJob()
			a.drainCommands()
			return
		}
	}
}

// drainCommands flushes every queued command with a destroyed error. No new
// commands can arrive: submit checks the quit channel first.
func (a *Actor) drainCommands() {
	for {
		select {
		case cmd := <-a.commands:
			cmd.reply <- cmdResult{err: ErrContextDestroyed}
		default:
			return
		}
	}
}

// submit queues a command and waits for the actor's reply.
func (a *Actor) submit(cmd *command) cmdResult {
	cmd.reply = make(chan cmdResult, 1)
	select {
	case <-a.quit:
		return cmdResult{err: ErrContextDestroyed}
	default:
	}
	select {
	case a.commands <- cmd:
	case <-a.done:
		return cmdResult{err: ErrContextDestroyed}
	}
	select {
	case res := <-cmd.reply:
		return res
	case <-a.done:
		// The actor exited with this command still queued; the drain
		// loop has replied or will never run it.
		select {
		case res := <-cmd.reply:
			return res
		default:
			return cmdResult{err: ErrContextDestroyed}
		}
	}
}

// destroy stops the run loop. Idempotent; callers wait on done.
func (a *Actor) destroy() {
	select {
	case <-a.quit:
	default:
		close(a.quit)
	}
	<-a.done
}

// Push validates and appends a stack frame, then schedules re-evaluation.
func (a *Actor) Push(item protocol.StackItem) error {
	return a.submit(&command{kind: cmdPush, item: item}).err
}

// Pop removes the top frame. Popping the explicit call leaves the context
// idle.
func (a *Actor) Pop() error {
	return a.submit(&command{kind: cmdPop}).err
}

// Recompute invalidates the selected cache entries and schedules
// re-evaluation from the current top frame.
func (a *Actor) Recompute(invalidated *protocol.InvalidatedExpressions, envOverride *protocol.ExecutionEnvironment) error {
	return a.submit(&command{kind: cmdRecompute, invalidated: invalidated, envOverride: envOverride}).err
}

// Interrupt cancels the in-flight evaluation job, if any. Stack and cache
// are untouched.
func (a *Actor) Interrupt() error {
	return a.submit(&command{kind: cmdInterrupt}).err
}

// SetEnvironment switches the execution environment. On change the current
// job is cancelled, the cache cleared, and evaluation restarted.
func (a *Actor) SetEnvironment(env protocol.ExecutionEnvironment) error {
	return a.submit(&command{kind: cmdSetEnvironment, env: env}).err
}

// AttachVisualization registers a visualization on an expression. If the
// expression already has a cached value the preprocessing runs immediately;
// otherwise the registration takes effect on the next evaluation.
func (a *Actor) AttachVisualization(id protocol.VisualizationID, exprID protocol.ExpressionID, module string, expr protocol.VisualizationExpression) error {
	return a.submit(&command{kind: cmdAttachVisualization, vizID: id, exprID: exprID, vizModule: module, vizExpr: expr}).err
}

// ModifyVisualization atomically replaces a visualization's specification.
// On failure the previous specification remains in effect.
func (a *Actor) ModifyVisualization(id protocol.VisualizationID, module string, expr protocol.VisualizationExpression) error {
	return a.submit(&command{kind: cmdModifyVisualization, vizID: id, vizModule: module, vizExpr: expr}).err
}

// DetachVisualization removes a visualization.
func (a *Actor) DetachVisualization(id protocol.VisualizationID, exprID protocol.ExpressionID) error {
	return a.submit(&command{kind: cmdDetachVisualization, vizID: id, exprID: exprID}).err
}

// ExecuteExpression evaluates a oneshot expression in the lexical scope of
// an expression, emitting a single visualization update without persisting
// anything in the registry.
func (a *Actor) ExecuteExpression(vizID protocol.VisualizationID, exprID protocol.ExpressionID, expression string) error {
	return a.submit(&command{kind: cmdExecuteExpression, vizID: vizID, exprID: exprID, expression: expression}).err
}

// ApplyEdit invalidates cache entries affected by a source edit to module,
// and schedules re-evaluation when anything was invalidated.
func (a *Actor) ApplyEdit(module string, replaced []protocol.ExpressionID) error {
	return a.submit(&command{kind: cmdApplyEdit, editModule: module, editReplaced: replaced}).err
}

// snapshotState deep-copies the triple for a fork.
func (a *Actor) snapshotState() (*contextState, error) {
	res := a.submit(&command{kind: cmdSnapshot})
	return res.state, res.err
}

func (a *Actor) handle(cmd *command) {
	switch cmd.kind {
	case cmdPush:
		cmd.reply <- cmdResult{err: a.handlePush(cmd.item)}
	case cmdPop:
		cmd.reply <- cmdResult{err: a.handlePop()}
	case cmdRecompute:
		cmd.reply <- cmdResult{err: a.handleRecompute(cmd.invalidated, cmd.envOverride)}
	case cmdInterrupt:
		a.handleInterrupt()
		cmd.reply <- cmdResult{}
	case cmdSetEnvironment:
		cmd.reply <- cmdResult{err: a.handleSetEnvironment(cmd.env)}
	case cmdAttachVisualization:
		cmd.reply <- cmdResult{err: a.handleAttach(cmd)}
	case cmdModifyVisualization:
		cmd.reply <- cmdResult{err: a.handleModify(cmd)}
	case cmdDetachVisualization:
		cmd.reply <- cmdResult{err: a.handleDetach(cmd)}
	case cmdExecuteExpression:
		a.handleExecuteExpression(cmd)
		cmd.reply <- cmdResult{}
	case cmdApplyEdit:
		a.handleApplyEdit(cmd.editModule, cmd.editReplaced)
		cmd.reply <- cmdResult{}
	case cmdSnapshot:
		cmd.reply <- cmdResult{state: &contextState{
			stack: a.stack.Clone(),
			cache: a.cache.Clone(),
			viz:   a.viz.Clone(),
			env:   a.env,
		}}
	}
}

func (a *Actor) handlePush(item protocol.StackItem) error {
	if local, ok := item.(protocol.LocalCall); ok && !a.stack.Empty() {
		if !a.cache.Has(local.ExpressionID) {
			return fmt.Errorf("%w: expression %s is not cached in the frame above", ErrInvalidStackItem, local.ExpressionID)
		}
	}
	if err := a.stack.Push(item); err != nil {
		return err
	}
	a.startJob(a.env)
	return nil
}

func (a *Actor) handlePop() error {
	if _, err := a.stack.Pop(); err != nil {
		return err
	}
	if a.stack.Empty() {
		// Context is idle now; the in-flight run is moot.
		a.cancelJob()
		return nil
	}
	a.startJob(a.env)
	return nil
}

func (a *Actor) handleRecompute(invalidated *protocol.InvalidatedExpressions, envOverride *protocol.ExecutionEnvironment) error {
	if a.stack.Empty() {
		return ErrEmptyStack
	}
	if invalidated != nil {
		if invalidated.All {
			n := a.cache.Len()
			a.cache.Clear()
			metrics.CacheInvalidations.Add(float64(n))
		} else {
			n := a.cache.Invalidate(invalidated.Expressions...)
			metrics.CacheInvalidations.Add(float64(n))
		}
	}
	env := a.env
	if envOverride != nil {
		env = *envOverride
	}
	a.startJob(env)
	return nil
}

func (a *Actor) handleInterrupt() {
	if a.cancelJob() {
		metrics.JobsInterrupted.Inc()
		a.emitter.ExecutionFailed(a.id, "Execution interrupted.")
	}
}

func (a *Actor) handleSetEnvironment(env protocol.ExecutionEnvironment) error {
	if !env.Valid() {
		return fmt.Errorf("unknown execution environment %q", env)
	}
	if env == a.env {
		return nil
	}
	a.cancelJob()
	a.env = env
	a.cache.Clear()
	if !a.stack.Empty() {
		a.startJob(a.env)
	}
	return nil
}

func (a *Actor) handleAttach(cmd *command) error {
	if diag := a.compileVisualization(cmd.vizModule, cmd.vizExpr); diag != nil {
		return &VisualizationError{Diagnostic: *diag}
	}
	attached := visualization.Attached{
		ID:           cmd.vizID,
		ExpressionID: cmd.exprID,
		Module:       cmd.vizModule,
		Expression:   cmd.vizExpr,
	}
	if _, exists := a.viz.Get(cmd.vizID); exists {
		if err := a.viz.Modify(cmd.vizID, cmd.exprID, cmd.vizModule, cmd.vizExpr); err != nil {
			return err
		}
	} else if err := a.viz.Attach(attached); err != nil {
		return err
	}
	if entry, ok := a.cache.Get(cmd.exprID); ok {
		a.runVisualization(attached, entry)
	}
	return nil
}

func (a *Actor) handleModify(cmd *command) error {
	existing, ok := a.viz.Get(cmd.vizID)
	if !ok {
		return ErrVisualizationNotFound
	}
	if diag := a.compileVisualization(cmd.vizModule, cmd.vizExpr); diag != nil {
		// Previous spec stays in effect.
		return &VisualizationError{Diagnostic: *diag}
	}
	if err := a.viz.Modify(cmd.vizID, existing.ExpressionID, cmd.vizModule, cmd.vizExpr); err != nil {
		return err
	}
	modified, _ := a.viz.Get(cmd.vizID)
	if entry, ok := a.cache.Get(modified.ExpressionID); ok {
		a.runVisualization(modified, entry)
	}
	return nil
}

func (a *Actor) handleDetach(cmd *command) error {
	if err := a.viz.Detach(cmd.vizID, cmd.exprID); err != nil {
		return ErrVisualizationNotFound
	}
	return nil
}

func (a *Actor) handleExecuteExpression(cmd *command) {
	vc := protocol.VisualizationContext{
		VisualizationID: cmd.vizID,
		ContextID:       a.id,
		ExpressionID:    cmd.exprID,
	}
	var value any
	var module string
	if entry, ok := a.cache.Get(cmd.exprID); ok {
		value = entry.Value
		module = entry.Module
	}
	payload, diag := a.eval.RunVisualization(context.Background(), evaluator.VisualizationJob{
		ContextID:       a.id,
		VisualizationID: cmd.vizID,
		ExpressionID:    cmd.exprID,
		Module:          module,
		Expression:      protocol.TextExpression{Expression: cmd.expression},
		Value:           value,
		Cache:           a.cache.Snapshot(),
	})
	if diag != nil {
		a.emitter.VisualizationFailed(vc, diag.Message, diag)
		return
	}
	a.emitter.VisualizationUpdate(vc, payload)
}

func (a *Actor) handleApplyEdit(module string, replaced []protocol.ExpressionID) {
	var invalidated int
	if a.stackReferencesModule(module) {
		invalidated = a.cache.InvalidateModule(module)
	} else {
		invalidated = a.cache.Invalidate(replaced...)
	}
	if invalidated == 0 {
		return
	}
	metrics.CacheInvalidations.Add(float64(invalidated))
	if !a.stack.Empty() {
		a.startJob(a.env)
	}
}

// stackReferencesModule reports whether any frame of the stack belongs to
// module: the explicit call by its method pointer, local calls by the module
// recorded with their cached expression.
func (a *Actor) stackReferencesModule(module string) bool {
	for _, item := range a.stack.Items() {
		switch frame := item.(type) {
		case protocol.ExplicitCall:
			if frame.MethodPointer.Module == module {
				return true
			}
		case protocol.LocalCall:
			if entry, ok := a.cache.Get(frame.ExpressionID); ok && entry.Module == module {
				return true
			}
		}
	}
	return false
}

func (a *Actor) compileVisualization(module string, expr protocol.VisualizationExpression) *protocol.Diagnostic {
	return a.eval.CompileVisualization(protocol.VisualizationConfiguration{
		ExecutionContextID: a.id,
		Module:             module,
		Expression:         protocol.VisualizationExpressionBox{Expression: expr},
	})
}

// cancelJob cancels the job in flight and bumps the epoch so any events it
// still produces are recognized as stale and dropped.
func (a *Actor) cancelJob() bool {
	if a.jobCancel == nil {
		return false
	}
	a.jobCancel()
	a.jobCancel = nil
	a.epoch++
	return true
}

// startJob cancels any running job and submits a fresh evaluation of the
// current stack on a worker goroutine.
func (a *Actor) startJob(env protocol.ExecutionEnvironment) {
	a.cancelJob()
	a.epoch++
	epoch := a.epoch
	ctx, cancel := context.WithCancel(context.Background())
	a.jobCancel = cancel

	job := evaluator.Job{
		ContextID:   a.id,
		Stack:       a.stack.Items(),
		Cache:       a.cache.Snapshot(),
		Environment: env,
	}
	metrics.JobsStarted.Inc()
	logging.Debug("context %s: starting evaluation job (epoch %d, %d frames)", a.id, epoch, len(job.Stack))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.postEvent(epoch, evaluator.Failed{Message: fmt.Sprintf("evaluator panicked: %v", r)})
			}
		}()
		a.eval.Run(ctx, job, func(ev evaluator.Event) {
			a.postEvent(epoch, ev)
		})
	}()
}

func (a *Actor) postEvent(epoch uint64, ev evaluator.Event) {
	select {
	case a.events <- jobEvent{epoch: epoch, event: ev}:
	case <-a.done:
	}
}

func (a *Actor) handleEvent(ev jobEvent) {
	if ev.epoch != a.epoch {
		// Late event from a cancelled job.
		logging.Debug("context %s: dropping stale event (epoch %d != %d)", a.id, ev.epoch, a.epoch)
		return
	}
	switch event := ev.event.(type) {
	case evaluator.ExpressionComputed:
		a.handleComputed(event)
	case evaluator.ExpressionCacheHit:
		a.handleCacheHit(event)
	case evaluator.Pending:
		a.handlePending(event)
	case evaluator.DiagnosticEvent:
		a.emitter.ExecutionStatus(a.id, []protocol.Diagnostic{event.Diagnostic})
	case evaluator.Complete:
		a.jobCancel = nil
		a.emitter.ExecutionComplete(a.id)
	case evaluator.Failed:
		a.jobCancel = nil
		a.emitter.ExecutionFailed(a.id, event.Message)
	}
}

func (a *Actor) handleComputed(event evaluator.ExpressionComputed) {
	changed := a.cache.Put(event.ExpressionID, CacheEntry{
		Module:     event.Module,
		Type:       event.Type,
		MethodCall: event.MethodCall,
		Profiling:  event.Profiling,
		Value:      event.Value,
	})

	notify := changed
	payload := event.Payload
	switch p := payload.(type) {
	case nil:
		payload = protocol.PayloadValue{}
	case protocol.PayloadValue:
		if p.WarningsCount > 0 {
			notify = true
		}
	default:
		// Panics, dataflow errors, and pending payloads always emit.
		notify = true
	}

	if notify {
		a.emitter.ExpressionUpdates(a.id, []protocol.ExpressionUpdate{{
			ExpressionID: event.ExpressionID,
			Type:         event.Type,
			MethodCall:   event.MethodCall,
			Profiling:    event.Profiling,
			FromCache:    false,
			Payload:      protocol.PayloadBox{Payload: payload},
		}})
	}
	a.runVisualizations(event.ExpressionID)
}

func (a *Actor) handleCacheHit(event evaluator.ExpressionCacheHit) {
	entry, ok := a.cache.Get(event.ExpressionID)
	if !ok {
		logging.Debug("context %s: cache hit for unknown expression %s", a.id, event.ExpressionID)
		return
	}
	// The dispatcher suppresses this per subscription when the pair
	// (id, type, method call) was already delivered in this session.
	a.emitter.ExpressionUpdates(a.id, []protocol.ExpressionUpdate{{
		ExpressionID: event.ExpressionID,
		Type:         entry.Type,
		MethodCall:   entry.MethodCall,
		Profiling:    entry.Profiling,
		FromCache:    true,
		Payload:      protocol.PayloadBox{Payload: protocol.PayloadValue{}},
	}})
	a.runVisualizations(event.ExpressionID)
}

func (a *Actor) handlePending(event evaluator.Pending) {
	updates := make([]protocol.ExpressionUpdate, 0, len(event.ExpressionIDs))
	for _, id := range event.ExpressionIDs {
		updates = append(updates, protocol.ExpressionUpdate{
			ExpressionID: id,
			Payload:      protocol.PayloadBox{Payload: protocol.PayloadPending{Message: event.Message}},
		})
	}
	if len(updates) > 0 {
		a.emitter.ExpressionUpdates(a.id, updates)
	}
}

// runVisualizations submits the preprocessing of every visualization
// attached to the expression against its current cached value. Runs
// synchronously on the actor goroutine, which keeps per-visualization
// updates in submission order.
func (a *Actor) runVisualizations(exprID protocol.ExpressionID) {
	entry, ok := a.cache.Get(exprID)
	if !ok {
		return
	}
	for _, v := range a.viz.For(exprID) {
		a.runVisualization(v, entry)
	}
}

func (a *Actor) runVisualization(v visualization.Attached, entry CacheEntry) {
	vc := protocol.VisualizationContext{
		VisualizationID: v.ID,
		ContextID:       a.id,
		ExpressionID:    v.ExpressionID,
	}
	payload, diag := a.eval.RunVisualization(context.Background(), evaluator.VisualizationJob{
		ContextID:       a.id,
		VisualizationID: v.ID,
		ExpressionID:    v.ExpressionID,
		Module:          v.Module,
		Expression:      v.Expression,
		Value:           entry.Value,
	})
	if diag != nil {
		// Failing preprocessing does not detach; the next cache event
		// retries.
		a.emitter.VisualizationFailed(vc, diag.Message, diag)
		return
	}
	a.emitter.VisualizationUpdate(vc, payload)
}
