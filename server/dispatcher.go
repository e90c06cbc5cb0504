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
package server

import (
	"encoding/json"
	"errors"

	"lumenlang.dev/runtime/edits"
	"lumenlang.dev/runtime/execution"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/protocol"
	"lumenlang.dev/runtime/suggestions"
)

// Dispatcher routes inbound commands to the runtime's components, enforcing
// session initialization and capability grants before any side effect.
type Dispatcher struct {
	runtime *Runtime
}

// NewDispatcher creates a dispatcher over a runtime.
func NewDispatcher(r *Runtime) *Dispatcher {
	return &Dispatcher{runtime: r}
}

// Handle processes one raw text-channel message and returns the reply.
func (d *Dispatcher) Handle(s *Session, data []byte) protocol.Response {
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return protocol.NewErrorResponse(protocol.RequestID{}, protocol.ErrInvalidParams(err))
	}
	logging.Debug("dispatch: %s (%s)", req.Method, req.RequestID)

	if req.Method == protocol.MethodInitProtocolConnection {
		return d.handleInit(s, req)
	}
	if !s.isInitialized() {
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrSessionNotInitialized())
	}

	switch req.Method {
	case protocol.MethodContextCreate:
		return d.handleContextCreate(s, req)
	case protocol.MethodContextDestroy:
		return d.handleContextDestroy(s, req)
	case protocol.MethodContextFork:
		return d.handleContextFork(s, req)
	case protocol.MethodStackPush:
		return d.handlePush(s, req)
	case protocol.MethodStackPop:
		return d.handlePop(s, req)
	case protocol.MethodRecompute:
		return d.handleRecompute(s, req)
	case protocol.MethodInterrupt:
		return d.handleInterrupt(s, req)
	case protocol.MethodSetEnvironment:
		return d.handleSetEnvironment(s, req)
	case protocol.MethodVisualizationAttach:
		return d.handleAttach(s, req)
	case protocol.MethodVisualizationModify:
		return d.handleModify(s, req)
	case protocol.MethodVisualizationDetach:
		return d.handleDetach(s, req)
	case protocol.MethodExecuteExpression:
		return d.handleExecuteExpression(s, req)
	case protocol.MethodCapabilityAcquire:
		return d.handleCapabilityAcquire(s, req)
	case protocol.MethodCapabilityRelease:
		return d.handleCapabilityRelease(s, req)
	case protocol.MethodSuggestionsSearch, protocol.MethodSuggestionsCompletion:
		return d.handleSearch(req)
	case protocol.MethodSuggestionsAllMethods:
		return d.handleGetAllMethods(req)
	case protocol.MethodSuggestionsVersion:
		return d.handleVersion(req)
	case protocol.MethodSuggestionsInvalidate:
		return d.handleInvalidate(req)
	case protocol.MethodTextApplyEdit:
		return d.handleApplyEdit(req)
	default:
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrMethodNotFound(req.Method))
	}
}

func decode[T any](req protocol.Request) (T, *protocol.Error) {
	var params T
	if len(req.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return params, protocol.ErrInvalidParams(err)
	}
	return params, nil
}

func ok(req protocol.Request, result any) protocol.Response {
	resp, err := protocol.NewResponse(req.RequestID, result)
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrInternal(err))
	}
	return resp
}

func (d *Dispatcher) handleInit(s *Session, req protocol.Request) protocol.Response {
	if err := s.initialize(); err != nil {
		return protocol.NewErrorResponse(req.RequestID, protocol.AsError(err))
	}
	return ok(req, protocol.InitProtocolConnectionResult{ContentRootID: d.runtime.ContentRoot()})
}

func (d *Dispatcher) handleContextCreate(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.CreateContextParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	id, err := d.runtime.Contexts.Create(params.ContextID)
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, protocol.AsError(err))
	}
	canModify, receivesUpdates := protocol.GrantsFor(id)
	s.grant(canModify.Method, canModify.ContextID)
	s.grant(receivesUpdates.Method, receivesUpdates.ContextID)
	return ok(req, protocol.CreateContextResult{
		ContextID:       id,
		CanModify:       canModify,
		ReceivesUpdates: receivesUpdates,
	})
}

func (d *Dispatcher) handleContextDestroy(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.DestroyContextParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	if !s.hasCapability(protocol.CapabilityCanModify, &params.ContextID) {
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrAccessDenied())
	}
	d.runtime.Contexts.Destroy(params.ContextID)
	d.runtime.hub.dropContext(params.ContextID)
	return ok(req, nil)
}

func (d *Dispatcher) handleContextFork(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.ForkContextParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	forked, err := d.runtime.Contexts.Fork(params.ContextID)
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, contextError(err, params.ContextID))
	}
	canModify, receivesUpdates := protocol.GrantsFor(forked)
	s.grant(canModify.Method, canModify.ContextID)
	s.grant(receivesUpdates.Method, receivesUpdates.ContextID)
	return ok(req, protocol.CreateContextResult{
		ContextID:       forked,
		CanModify:       canModify,
		ReceivesUpdates: receivesUpdates,
	})
}

// withActor checks the canModify grant and resolves the actor before
// running a stack or visualization command.
func (d *Dispatcher) withActor(s *Session, req protocol.Request, id protocol.ContextID, f func(*execution.Actor) error) protocol.Response {
	if !s.hasCapability(protocol.CapabilityCanModify, &id) {
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrAccessDenied())
	}
	actor, err := d.runtime.Contexts.Get(id)
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, contextError(err, id))
	}
	if err := f(actor); err != nil {
		return protocol.NewErrorResponse(req.RequestID, contextError(err, id))
	}
	return ok(req, nil)
}

func (d *Dispatcher) handlePush(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.PushParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.Push(params.StackItem.Item)
	})
}

func (d *Dispatcher) handlePop(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.PopParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.Pop()
	})
}

func (d *Dispatcher) handleRecompute(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.RecomputeParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.Recompute(params.InvalidatedExpressions, params.ExecutionEnvironment)
	})
}

func (d *Dispatcher) handleInterrupt(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.InterruptParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.Interrupt()
	})
}

func (d *Dispatcher) handleSetEnvironment(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.SetEnvironmentParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.SetEnvironment(params.ExecutionEnvironment)
	})
}

func (d *Dispatcher) handleAttach(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.AttachVisualizationParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	cfg := params.VisualizationConfig
	return d.withActor(s, req, cfg.ExecutionContextID, func(a *execution.Actor) error {
		return a.AttachVisualization(params.VisualizationID, params.ExpressionID, cfg.Module, cfg.Expression.Expression)
	})
}

func (d *Dispatcher) handleModify(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.ModifyVisualizationParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	cfg := params.VisualizationConfig
	return d.withActor(s, req, cfg.ExecutionContextID, func(a *execution.Actor) error {
		return a.ModifyVisualization(params.VisualizationID, cfg.Module, cfg.Expression.Expression)
	})
}

func (d *Dispatcher) handleDetach(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.DetachVisualizationParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.DetachVisualization(params.VisualizationID, params.ExpressionID)
	})
}

func (d *Dispatcher) handleExecuteExpression(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.ExecuteExpressionParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return d.withActor(s, req, params.ContextID, func(a *execution.Actor) error {
		return a.ExecuteExpression(params.VisualizationID, params.ExpressionID, params.Expression)
	})
}

func (d *Dispatcher) handleCapabilityAcquire(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.CapabilityParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	switch params.Registration.Method {
	case protocol.CapabilityCanModify, protocol.CapabilityReceivesUpdates:
		if params.Registration.ContextID == nil {
			return protocol.NewErrorResponse(req.RequestID, protocol.ErrInvalidParams(errors.New("missing contextId")))
		}
		if _, err := d.runtime.Contexts.Get(*params.Registration.ContextID); err != nil {
			return protocol.NewErrorResponse(req.RequestID, contextError(err, *params.Registration.ContextID))
		}
	case protocol.CapabilityReceivesSuggestion:
	default:
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrInvalidParams(errors.New("unknown capability "+params.Registration.Method)))
	}
	s.grant(params.Registration.Method, params.Registration.ContextID)
	return ok(req, nil)
}

func (d *Dispatcher) handleCapabilityRelease(s *Session, req protocol.Request) protocol.Response {
	params, perr := decode[protocol.CapabilityParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	s.revoke(params.Registration.Method, params.Registration.ContextID)
	return ok(req, nil)
}

func (d *Dispatcher) handleSearch(req protocol.Request) protocol.Response {
	params, perr := decode[protocol.SuggestionsSearchParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	filter := suggestions.Filter{
		Module:     params.Module,
		SelfTypes:  params.SelfTypes,
		ReturnType: params.ReturnType,
		Position:   params.Position,
	}
	if params.Kinds != nil {
		filter.Kinds = make([]suggestions.Kind, 0, len(params.Kinds))
		for _, k := range params.Kinds {
			filter.Kinds = append(filter.Kinds, suggestions.Kind(k))
		}
	}
	ids, version := d.runtime.Index.Search(filter)
	return ok(req, protocol.SuggestionsSearchResult{Results: ids, CurrentVersion: version})
}

func (d *Dispatcher) handleGetAllMethods(req protocol.Request) protocol.Response {
	params, perr := decode[protocol.GetAllMethodsParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	return ok(req, protocol.GetAllMethodsResult{
		MethodIDs: d.runtime.Index.GetAllMethods(params.Methods),
	})
}

func (d *Dispatcher) handleVersion(req protocol.Request) protocol.Response {
	return ok(req, protocol.SuggestionsVersionResult{CurrentVersion: d.runtime.Index.CurrentVersion()})
}

func (d *Dispatcher) handleInvalidate(req protocol.Request) protocol.Response {
	if err := d.runtime.Edits.Invalidate(); err != nil {
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrSuggestionsDatabase(err.Error()))
	}
	return ok(req, nil)
}

func (d *Dispatcher) handleApplyEdit(req protocol.Request) protocol.Response {
	params, perr := decode[protocol.ApplyEditParams](req)
	if perr != nil {
		return protocol.NewErrorResponse(req.RequestID, perr)
	}
	if params.Module == "" {
		return protocol.NewErrorResponse(req.RequestID, protocol.ErrModuleNameNotResolved(params.Module))
	}
	if err := d.runtime.Edits.Apply(edits.Edit{
		Module:   params.Module,
		Replaced: params.Replaced,
	}); err != nil {
		return protocol.NewErrorResponse(req.RequestID, protocol.AsError(err))
	}
	return ok(req, nil)
}

// contextError translates internal execution errors into the wire taxonomy.
func contextError(err error, id protocol.ContextID) *protocol.Error {
	var vizErr *execution.VisualizationError
	switch {
	case errors.As(err, &vizErr):
		return protocol.ErrVisualizationExpression(vizErr.Diagnostic)
	case errors.Is(err, execution.ErrContextNotFound):
		return protocol.ErrContextNotFound(id)
	case errors.Is(err, execution.ErrContextDestroyed):
		return protocol.ErrContextDestroyed(id)
	case errors.Is(err, execution.ErrEmptyStack):
		return protocol.ErrEmptyStack()
	case errors.Is(err, execution.ErrInvalidStackItem):
		return protocol.ErrInvalidStackItem(err.Error())
	case errors.Is(err, execution.ErrVisualizationNotFound):
		return protocol.ErrVisualizationNotFound(protocol.VisualizationID{})
	default:
		return protocol.AsError(err)
	}
}
