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

import "lumenlang.dev/runtime/protocol"

// Emitter receives the notifications produced by context actors. The
// dispatcher implements it to fan notifications out to subscribed sessions;
// tests implement it to record them.
type Emitter interface {
	ExpressionUpdates(id protocol.ContextID, updates []protocol.ExpressionUpdate)
	ExecutionComplete(id protocol.ContextID)
	ExecutionFailed(id protocol.ContextID, message string)
	ExecutionStatus(id protocol.ContextID, diagnostics []protocol.Diagnostic)
	VisualizationUpdate(vc protocol.VisualizationContext, payload []byte)
	VisualizationFailed(vc protocol.VisualizationContext, message string, diagnostic *protocol.Diagnostic)
}
