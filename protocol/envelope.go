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
package protocol

import "encoding/json"

// Request is one inbound command on the text channel. Every request carries
// a UUID id echoed on the reply.
type Request struct {
	RequestID RequestID       `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response replies to exactly one Request. Result and Error are mutually
// exclusive.
type Response struct {
	RequestID RequestID       `json:"id"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *Error          `json:"error,omitempty"`
}

// Notification is an unsolicited outbound message; it carries no request id.
type Notification struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// NewResponse builds a success response, marshalling result.
func NewResponse(id RequestID, result any) (Response, error) {
	if result == nil {
		return Response{RequestID: id, Result: json.RawMessage(`null`)}, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, err
	}
	return Response{RequestID: id, Result: raw}, nil
}

// NewErrorResponse builds a failure response.
func NewErrorResponse(id RequestID, e *Error) Response {
	return Response{RequestID: id, Error: e}
}

// Notification method names.
const (
	NotifyExpressionUpdates             = "executionContext/expressionUpdates"
	NotifyExecutionComplete             = "executionContext/executionComplete"
	NotifyExecutionFailed               = "executionContext/executionFailed"
	NotifyExecutionStatus               = "executionContext/executionStatus"
	NotifyVisualizationEvaluationFailed = "executionContext/visualizationEvaluationFailed"
	NotifySuggestionsDatabaseUpdate     = "search/suggestionsDatabaseUpdates"
)

// Request method names.
const (
	MethodInitProtocolConnection = "session/initProtocolConnection"

	MethodContextCreate  = "executionContext/create"
	MethodContextDestroy = "executionContext/destroy"
	MethodContextFork    = "executionContext/fork"

	MethodStackPush      = "executionContext/push"
	MethodStackPop       = "executionContext/pop"
	MethodRecompute      = "executionContext/recompute"
	MethodInterrupt      = "executionContext/interrupt"
	MethodSetEnvironment = "executionContext/setExecutionEnvironment"

	MethodVisualizationAttach = "executionContext/attachVisualization"
	MethodVisualizationModify = "executionContext/modifyVisualization"
	MethodVisualizationDetach = "executionContext/detachVisualization"
	MethodExecuteExpression   = "executionContext/executeExpression"

	MethodSuggestionsSearch     = "search/getSuggestionsDatabase"
	MethodSuggestionsCompletion = "search/completion"
	MethodSuggestionsAllMethods = "search/getAllMethods"
	MethodSuggestionsVersion    = "search/getSuggestionsDatabaseVersion"
	MethodSuggestionsInvalidate = "search/invalidateSuggestionsDatabase"

	MethodTextApplyEdit = "text/applyEdit"

	MethodCapabilityAcquire = "capability/acquire"
	MethodCapabilityRelease = "capability/release"
)
