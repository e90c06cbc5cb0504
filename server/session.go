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
	"fmt"
	"sync"

	"github.com/google/uuid"
	"lumenlang.dev/runtime/protocol"
)

// transport abstracts the two wire channels of one connected session: text
// frames for commands and notifications, binary frames for payload-heavy
// data.
type transport interface {
	WriteText(v any) error
	WriteBinary(frame []byte) error
	Close() error
}

type capabilityKey struct {
	method  string
	context protocol.ContextID
}

// Session is one connected front-end client: its capability grants, its
// per-subscription delivery bookkeeping, and its outbound queue.
type Session struct {
	id     uuid.UUID
	outbox *outbox

	mu           sync.Mutex
	initialized  bool
	capabilities map[capabilityKey]struct{}
	// delivered records (context, expression, type, method call) tuples
	// already sent, so cache-hit updates repeat nothing within a session.
	delivered map[string]struct{}
}

func newSession(t transport) *Session {
	return &Session{
		id:           uuid.New(),
		outbox:       newOutbox(t),
		capabilities: make(map[capabilityKey]struct{}),
		delivered:    make(map[string]struct{}),
	}
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return protocol.ErrSessionAlreadyInitialized()
	}
	s.initialized = true
	return nil
}

func (s *Session) isInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// grant adds a capability, optionally scoped to a context.
func (s *Session) grant(method string, context *protocol.ContextID) {
	key := capabilityKey{method: method}
	if context != nil {
		key.context = *context
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capabilities[key] = struct{}{}
}

// revoke removes a capability grant.
func (s *Session) revoke(method string, context *protocol.ContextID) {
	key := capabilityKey{method: method}
	if context != nil {
		key.context = *context
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.capabilities, key)
}

// hasCapability reports whether the session holds a grant.
func (s *Session) hasCapability(method string, context *protocol.ContextID) bool {
	key := capabilityKey{method: method}
	if context != nil {
		key.context = *context
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.capabilities[key]
	return ok
}

// dropContext removes every grant and delivery record scoped to a
// destroyed context.
func (s *Session) dropContext(id protocol.ContextID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.capabilities {
		if key.context == id {
			delete(s.capabilities, key)
		}
	}
	prefix := id.String() + "|"
	for key := range s.delivered {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.delivered, key)
		}
	}
}

// deliveryFingerprint identifies a (context, expression, type, method call)
// tuple for cache-hit suppression.
func deliveryFingerprint(ctx protocol.ContextID, u protocol.ExpressionUpdate) string {
	t := ""
	if u.Type != nil {
		t = *u.Type
	}
	mc := ""
	if u.MethodCall != nil {
		mc = fmt.Sprintf("%s:%s:%s:%v",
			u.MethodCall.MethodPointer.Module,
			u.MethodCall.MethodPointer.DefinedOnType,
			u.MethodCall.MethodPointer.Name,
			u.MethodCall.NotAppliedArguments)
	}
	return fmt.Sprintf("%s|%s|%s|%s", ctx, u.ExpressionID, t, mc)
}

// filterUpdates drops cache-hit updates whose tuple the session has already
// received and records the tuples of everything delivered.
func (s *Session) filterUpdates(ctx protocol.ContextID, updates []protocol.ExpressionUpdate) []protocol.ExpressionUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.ExpressionUpdate, 0, len(updates))
	for _, u := range updates {
		fp := deliveryFingerprint(ctx, u)
		if u.FromCache {
			if _, seen := s.delivered[fp]; seen {
				continue
			}
		}
		s.delivered[fp] = struct{}{}
		out = append(out, u)
	}
	return out
}

// notify queues a notification on the text channel.
func (s *Session) notify(method string, params any, coalesceKey string) {
	s.outbox.enqueue(outboundItem{
		text:        protocol.Notification{Method: method, Params: params},
		coalesceKey: coalesceKey,
	})
}

// respond queues a command reply on the text channel.
func (s *Session) respond(resp protocol.Response) {
	s.outbox.enqueue(outboundItem{text: resp})
}

// sendBinary queues a frame on the binary channel.
func (s *Session) sendBinary(frame []byte) {
	s.outbox.enqueue(outboundItem{binary: frame})
}

// close stops the session's writer.
func (s *Session) close() {
	s.outbox.close()
}
