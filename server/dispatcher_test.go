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
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"lumenlang.dev/runtime/evaluator"
	"lumenlang.dev/runtime/evaluator/evaltest"
	"lumenlang.dev/runtime/protocol"
	"lumenlang.dev/runtime/suggestions"
)

// testTransport records outbound traffic on channels.
type testTransport struct {
	mu       sync.Mutex
	closed   bool
	texts    chan any
	binaries chan []byte
}

func newTestTransport() *testTransport {
	return &testTransport{
		texts:    make(chan any, 256),
		binaries: make(chan []byte, 256),
	}
}

func (t *testTransport) WriteText(v any) error {
	t.texts <- v
	return nil
}

func (t *testTransport) WriteBinary(frame []byte) error {
	t.binaries <- frame
	return nil
}

func (t *testTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// nextNotification waits for the next notification, skipping responses.
func (t *testTransport) nextNotification(tt *testing.T) protocol.Notification {
	tt.Helper()
	for {
		select {
		case msg := <-t.texts:
			if n, ok := msg.(protocol.Notification); ok {
				return n
			}
		case <-time.After(2 * time.Second):
			tt.Fatal("timed out waiting for a notification")
		}
	}
}

func (t *testTransport) expectNotification(tt *testing.T, method string) protocol.Notification {
	tt.Helper()
	n := t.nextNotification(tt)
	if n.Method != method {
		tt.Fatalf("expected %q notification, got %q", method, n.Method)
	}
	return n
}

func (t *testTransport) nextBinary(tt *testing.T) []byte {
	tt.Helper()
	select {
	case frame := <-t.binaries:
		return frame
	case <-time.After(2 * time.Second):
		tt.Fatal("timed out waiting for a binary frame")
		return nil
	}
}

// harness bundles a runtime, a dispatcher, and one connected session.
type harness struct {
	runtime    *Runtime
	dispatcher *Dispatcher
	session    *Session
	transport  *testTransport
}

func newHarness(t *testing.T, eval evaluator.Evaluator) *harness {
	t.Helper()
	runtime := NewRuntime(eval)
	t.Cleanup(runtime.Shutdown)
	transport := newTestTransport()
	session := runtime.attachSession(transport)
	return &harness{
		runtime:    runtime,
		dispatcher: NewDispatcher(runtime),
		session:    session,
		transport:  transport,
	}
}

// call dispatches a request on the harness session and returns the reply.
func (h *harness) call(t *testing.T, method string, params any) protocol.Response {
	t.Helper()
	return callAs(t, h.dispatcher, h.session, method, params)
}

func callAs(t *testing.T, d *Dispatcher, s *Session, method string, params any) protocol.Response {
	t.Helper()
	req := protocol.Request{RequestID: uuid.New(), Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		req.Params = raw
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	resp := d.Handle(s, data)
	require.Equal(t, req.RequestID, resp.RequestID, "replies echo the request id")
	return resp
}

func (h *harness) mustCall(t *testing.T, method string, params any, result any) {
	t.Helper()
	resp := h.call(t, method, params)
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	if result != nil {
		require.NoError(t, json.Unmarshal(resp.Result, result))
	}
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	var result protocol.InitProtocolConnectionResult
	h.mustCall(t, protocol.MethodInitProtocolConnection, protocol.InitProtocolConnectionParams{ClientID: uuid.New()}, &result)
	require.Equal(t, h.runtime.ContentRoot(), result.ContentRootID)
}

func (h *harness) createContext(t *testing.T) protocol.ContextID {
	t.Helper()
	var result protocol.CreateContextResult
	h.mustCall(t, protocol.MethodContextCreate, nil, &result)
	return result.ContextID
}

func TestSessionMustInitializeFirst(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})

	resp := h.call(t, protocol.MethodContextCreate, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, protocol.CodeSessionNotInitialized, resp.Error.Code)

	h.init(t)
	resp = h.call(t, protocol.MethodInitProtocolConnection, protocol.InitProtocolConnectionParams{ClientID: uuid.New()})
	require.NotNil(t, resp.Error)
	require.Equal(t, protocol.CodeSessionAlreadyInitialized, resp.Error.Code)
}

func TestContextLifecycleOverProtocol(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})
	h.init(t)

	var created protocol.CreateContextResult
	h.mustCall(t, protocol.MethodContextCreate, nil, &created)
	require.Equal(t, protocol.CapabilityCanModify, created.CanModify.Method)
	require.Equal(t, protocol.CapabilityReceivesUpdates, created.ReceivesUpdates.Method)
	require.NotNil(t, created.CanModify.ContextID)

	// Idempotent create with a suggested id.
	var again protocol.CreateContextResult
	h.mustCall(t, protocol.MethodContextCreate, protocol.CreateContextParams{ContextID: &created.ContextID}, &again)
	require.Equal(t, created.ContextID, again.ContextID)

	var forked protocol.CreateContextResult
	h.mustCall(t, protocol.MethodContextFork, protocol.ForkContextParams{ContextID: created.ContextID}, &forked)
	require.NotEqual(t, created.ContextID, forked.ContextID)

	h.mustCall(t, protocol.MethodContextDestroy, protocol.DestroyContextParams{ContextID: created.ContextID}, nil)

	// Grants died with the context.
	resp := h.call(t, protocol.MethodStackPop, protocol.PopParams{ContextID: created.ContextID})
	require.NotNil(t, resp.Error)
	require.Equal(t, protocol.CodeAccessDenied, resp.Error.Code)
}

func TestForkUnknownContext(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})
	h.init(t)
	resp := h.call(t, protocol.MethodContextFork, protocol.ForkContextParams{ContextID: protocol.NewContextID()})
	require.NotNil(t, resp.Error)
	require.Equal(t, protocol.CodeContextNotFound, resp.Error.Code)
}

func TestCapabilityGating(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})
	h.init(t)
	ctx := h.createContext(t)

	// A second session without grants cannot touch the context.
	otherTransport := newTestTransport()
	other := h.runtime.attachSession(otherTransport)
	t.Cleanup(func() { h.runtime.detachSession(other) })
	callAs(t, h.dispatcher, other, protocol.MethodInitProtocolConnection, protocol.InitProtocolConnectionParams{ClientID: uuid.New()})

	resp := callAs(t, h.dispatcher, other, protocol.MethodStackPop, protocol.PopParams{ContextID: ctx})
	require.NotNil(t, resp.Error)
	require.Equal(t, protocol.CodeAccessDenied, resp.Error.Code)

	// Acquiring the grant unlocks the command.
	acquire := protocol.CapabilityParams{Registration: protocol.CapabilityRegistration{
		Method:    protocol.CapabilityCanModify,
		ContextID: &ctx,
	}}
	r := callAs(t, h.dispatcher, other, protocol.MethodCapabilityAcquire, acquire)
	require.Nil(t, r.Error)

	resp = callAs(t, h.dispatcher, other, protocol.MethodStackPop, protocol.PopParams{ContextID: ctx})
	require.NotNil(t, resp.Error)
	require.Equal(t, protocol.CodeEmptyStack, resp.Error.Code, "with the grant, the command reaches the stack")
}

func TestStackErrorsOverProtocol(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})
	h.init(t)
	ctx := h.createContext(t)

	t.Run("pop on empty stack", func(t *testing.T) {
		resp := h.call(t, protocol.MethodStackPop, protocol.PopParams{ContextID: ctx})
		require.NotNil(t, resp.Error)
		require.Equal(t, protocol.CodeEmptyStack, resp.Error.Code)
	})

	t.Run("recompute on idle context", func(t *testing.T) {
		resp := h.call(t, protocol.MethodRecompute, protocol.RecomputeParams{ContextID: ctx})
		require.NotNil(t, resp.Error)
		require.Equal(t, protocol.CodeEmptyStack, resp.Error.Code)
	})

	t.Run("local call on empty stack", func(t *testing.T) {
		resp := h.call(t, protocol.MethodStackPush, protocol.PushParams{
			ContextID: ctx,
			StackItem: protocol.StackItemBox{Item: protocol.LocalCall{ExpressionID: protocol.NewExpressionID()}},
		})
		require.NotNil(t, resp.Error)
		require.Equal(t, protocol.CodeInvalidStackItem, resp.Error.Code)
	})
}

func TestSuggestionsOverProtocol(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})
	h.init(t)

	seedIndex(h)

	var version protocol.SuggestionsVersionResult
	h.mustCall(t, protocol.MethodSuggestionsVersion, nil, &version)
	require.EqualValues(t, 1, version.CurrentVersion)

	var search protocol.SuggestionsSearchResult
	h.mustCall(t, protocol.MethodSuggestionsSearch, protocol.SuggestionsSearchParams{
		Module: strptr("Test.Main"),
	}, &search)
	require.Len(t, search.Results, 2)

	// Explicit empty kinds list matches nothing.
	h.mustCall(t, protocol.MethodSuggestionsSearch, protocol.SuggestionsSearchParams{
		Kinds: []string{},
	}, &search)
	require.Empty(t, search.Results)

	var methods protocol.GetAllMethodsResult
	h.mustCall(t, protocol.MethodSuggestionsAllMethods, protocol.GetAllMethodsParams{
		Methods: []protocol.MethodPointer{
			{Module: "Test.Main", DefinedOnType: "Test.Main", Name: "main"},
			{Module: "Test.Main", DefinedOnType: "Test.Main", Name: "missing"},
		},
	}, &methods)
	require.Len(t, methods.MethodIDs, 2)
	require.NotNil(t, methods.MethodIDs[0])
	require.Nil(t, methods.MethodIDs[1])

	// Invalidation clears the database.
	h.mustCall(t, protocol.MethodSuggestionsInvalidate, nil, nil)
	require.Equal(t, 0, h.runtime.Index.Len())
}

func TestSuggestionsStreamNotifications(t *testing.T) {
	h := newHarness(t, &evaltest.Scripted{})
	h.init(t)

	h.mustCall(t, protocol.MethodCapabilityAcquire, protocol.CapabilityParams{
		Registration: protocol.CapabilityRegistration{Method: protocol.CapabilityReceivesSuggestion},
	}, nil)

	seedIndex(h)

	n := h.transport.expectNotification(t, protocol.NotifySuggestionsDatabaseUpdate)
	require.NotNil(t, n.Params)
}

// seedIndex indexes a minimal Test.Main module.
func seedIndex(h *harness) {
	h.runtime.Index.ApplyModuleUpdate("Test.Main", nil, []suggestions.TreeNode{
		{Update: suggestions.TreeAdd, Suggestion: &suggestions.Module{ModuleName: "Test.Main"}},
		{Update: suggestions.TreeAdd, Suggestion: &suggestions.Method{
			DefinedIn:  "Test.Main",
			MethodName: "main",
			SelfType:   "Test.Main",
			IsStatic:   true,
		}},
	})
}

func strptr(s string) *string { return &s }
