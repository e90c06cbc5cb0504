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
	"sync"

	"github.com/google/uuid"
	"lumenlang.dev/runtime/execution"
	"lumenlang.dev/runtime/internal/logging"
	"lumenlang.dev/runtime/internal/metrics"
	"lumenlang.dev/runtime/protocol"
)

// hub fans context-actor notifications out to the sessions subscribed to
// them. It implements execution.Emitter and the protocol-mode logging sink.
type hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

var _ execution.Emitter = (*hub)(nil)
var _ logging.Sink = (*hub)(nil)

func newHub() *hub {
	return &hub{sessions: make(map[uuid.UUID]*Session)}
}

func (h *hub) addSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.id] = s
}

func (h *hub) removeSession(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.id)
}

func (h *hub) each(f func(*Session)) {
	h.mu.RLock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()
	for _, s := range snapshot {
		f(s)
	}
}

// subscribers yields the sessions holding a receivesUpdates grant for the
// context.
func (h *hub) subscribers(ctx protocol.ContextID, f func(*Session)) {
	h.each(func(s *Session) {
		if s.hasCapability(protocol.CapabilityReceivesUpdates, &ctx) {
			f(s)
		}
	})
}

func (h *hub) ExpressionUpdates(ctx protocol.ContextID, updates []protocol.ExpressionUpdate) {
	h.subscribers(ctx, func(s *Session) {
		filtered := s.filterUpdates(ctx, updates)
		if len(filtered) == 0 {
			return
		}
		key := ""
		if len(filtered) == 1 {
			// Single-expression batches may coalesce under backpressure;
			// only the most recent value matters then.
			key = "expr|" + ctx.String() + "|" + filtered[0].ExpressionID.String()
		}
		metrics.NotificationsEmitted.WithLabelValues(protocol.NotifyExpressionUpdates).Inc()
		s.notify(protocol.NotifyExpressionUpdates, protocol.ExpressionUpdatesNotification{
			ContextID: ctx,
			Updates:   filtered,
		}, key)
	})
}

func (h *hub) ExecutionComplete(ctx protocol.ContextID) {
	h.subscribers(ctx, func(s *Session) {
		metrics.NotificationsEmitted.WithLabelValues(protocol.NotifyExecutionComplete).Inc()
		s.notify(protocol.NotifyExecutionComplete, protocol.ExecutionCompleteNotification{ContextID: ctx}, "")
	})
}

func (h *hub) ExecutionFailed(ctx protocol.ContextID, message string) {
	h.subscribers(ctx, func(s *Session) {
		metrics.NotificationsEmitted.WithLabelValues(protocol.NotifyExecutionFailed).Inc()
		s.notify(protocol.NotifyExecutionFailed, protocol.ExecutionFailedNotification{
			ContextID: ctx,
			Message:   message,
		}, "")
	})
}

func (h *hub) ExecutionStatus(ctx protocol.ContextID, diagnostics []protocol.Diagnostic) {
	h.subscribers(ctx, func(s *Session) {
		metrics.NotificationsEmitted.WithLabelValues(protocol.NotifyExecutionStatus).Inc()
		s.notify(protocol.NotifyExecutionStatus, protocol.ExecutionStatusNotification{
			ContextID:   ctx,
			Diagnostics: diagnostics,
		}, "")
	})
}

func (h *hub) VisualizationUpdate(vc protocol.VisualizationContext, payload []byte) {
	frame := encodeVisualizationFrame(vc, payload)
	h.subscribers(vc.ContextID, func(s *Session) {
		metrics.NotificationsEmitted.WithLabelValues("visualizationUpdate").Inc()
		s.sendBinary(frame)
	})
}

func (h *hub) VisualizationFailed(vc protocol.VisualizationContext, message string, diagnostic *protocol.Diagnostic) {
	h.subscribers(vc.ContextID, func(s *Session) {
		metrics.NotificationsEmitted.WithLabelValues(protocol.NotifyVisualizationEvaluationFailed).Inc()
		s.notify(protocol.NotifyVisualizationEvaluationFailed, protocol.VisualizationEvaluationFailedNotification{
			VisualizationContext: vc,
			Message:              message,
			Diagnostic:           diagnostic,
		}, "")
	})
}

// Log forwards runtime log messages to every initialized session.
func (h *hub) Log(level logging.LogLevel, message string) {
	h.each(func(s *Session) {
		if !s.isInitialized() {
			return
		}
		s.notify("runtime/logMessage", map[string]any{
			"level":   level.String(),
			"message": message,
		}, "")
	})
}

// dropContext removes grants and bookkeeping for a destroyed context from
// every session.
func (h *hub) dropContext(ctx protocol.ContextID) {
	h.each(func(s *Session) {
		s.dropContext(ctx)
	})
}

// encodeVisualizationFrame lays a payload out on the binary channel: three
// raw 16-byte UUIDs (visualization, context, expression) followed by the
// payload bytes.
func encodeVisualizationFrame(vc protocol.VisualizationContext, payload []byte) []byte {
	frame := make([]byte, 0, 48+len(payload))
	viz := uuid.UUID(vc.VisualizationID)
	ctx := uuid.UUID(vc.ContextID)
	expr := uuid.UUID(vc.ExpressionID)
	frame = append(frame, viz[:]...)
	frame = append(frame, ctx[:]...)
	frame = append(frame, expr[:]...)
	return append(frame, payload...)
}

// DecodeVisualizationFrame splits a binary-channel frame back into its
// visualization context and payload. Front-end clients and tests use it.
func DecodeVisualizationFrame(frame []byte) (protocol.VisualizationContext, []byte, bool) {
	if len(frame) < 48 {
		return protocol.VisualizationContext{}, nil, false
	}
	var vc protocol.VisualizationContext
	vc.VisualizationID = protocol.VisualizationID(uuid.UUID(frame[0:16]))
	vc.ContextID = protocol.ContextID(uuid.UUID(frame[16:32]))
	vc.ExpressionID = protocol.ExpressionID(uuid.UUID(frame[32:48]))
	return vc, frame[48:], true
}
