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

import (
	"encoding/json"
	"fmt"
)

// InvalidatedExpressions selects which cache entries a recompute clears:
// everything, or an explicit set.
type InvalidatedExpressions struct {
	All         bool
	Expressions []ExpressionID
}

func (ie InvalidatedExpressions) MarshalJSON() ([]byte, error) {
	if ie.All {
		return json.Marshal("all")
	}
	return json.Marshal(ie.Expressions)
}

func (ie *InvalidatedExpressions) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "all" {
			return fmt.Errorf("unknown invalidation selector %q", s)
		}
		ie.All = true
		return nil
	}
	return json.Unmarshal(data, &ie.Expressions)
}

// Session.

type InitProtocolConnectionParams struct {
	ClientID RequestID `json:"clientId"`
}

type InitProtocolConnectionResult struct {
	ContentRootID RequestID `json:"contentRootId"`
}

// Context lifecycle.

type CreateContextParams struct {
	ContextID *ContextID `json:"contextId,omitempty"`
}

type CreateContextResult struct {
	ContextID       ContextID              `json:"contextId"`
	CanModify       CapabilityRegistration `json:"canModify"`
	ReceivesUpdates CapabilityRegistration `json:"receivesUpdates"`
}

type DestroyContextParams struct {
	ContextID ContextID `json:"contextId"`
}

type ForkContextParams struct {
	ContextID ContextID `json:"contextId"`
}

// Stack commands.

type PushParams struct {
	ContextID ContextID    `json:"contextId"`
	StackItem StackItemBox `json:"stackItem"`
}

type PopParams struct {
	ContextID ContextID `json:"contextId"`
}

type RecomputeParams struct {
	ContextID              ContextID               `json:"contextId"`
	InvalidatedExpressions *InvalidatedExpressions `json:"invalidatedExpressions,omitempty"`
	ExecutionEnvironment   *ExecutionEnvironment   `json:"executionEnvironment,omitempty"`
}

type InterruptParams struct {
	ContextID ContextID `json:"contextId"`
}

type SetEnvironmentParams struct {
	ContextID            ContextID            `json:"contextId"`
	ExecutionEnvironment ExecutionEnvironment `json:"executionEnvironment"`
}

// Visualization commands.

type AttachVisualizationParams struct {
	VisualizationID     VisualizationID            `json:"visualizationId"`
	ExpressionID        ExpressionID               `json:"expressionId"`
	VisualizationConfig VisualizationConfiguration `json:"visualizationConfig"`
}

type ModifyVisualizationParams struct {
	VisualizationID     VisualizationID            `json:"visualizationId"`
	VisualizationConfig VisualizationConfiguration `json:"visualizationConfig"`
}

type DetachVisualizationParams struct {
	ContextID       ContextID       `json:"contextId"`
	VisualizationID VisualizationID `json:"visualizationId"`
	ExpressionID    ExpressionID    `json:"expressionId"`
}

type ExecuteExpressionParams struct {
	ContextID       ContextID       `json:"contextId"`
	VisualizationID VisualizationID `json:"visualizationId"`
	ExpressionID    ExpressionID    `json:"expressionId"`
	Expression      string          `json:"expression"`
}

// Text edits.

// ApplyEditParams announces a source edit to a module; Replaced lists the
// expression ids whose parsed nodes were textually replaced.
type ApplyEditParams struct {
	Module   string         `json:"module"`
	Replaced []ExpressionID `json:"replacedExpressionIds,omitempty"`
}

// Capability commands.

type CapabilityParams struct {
	Registration CapabilityRegistration `json:"registration"`
}

// Suggestions commands.

// SuggestionsSearchParams follows the explicit-empty vs absent convention: a
// nil slice means no constraint, an empty one matches nothing.
type SuggestionsSearchParams struct {
	Module     *string   `json:"module,omitempty"`
	SelfTypes  []string  `json:"selfType"`
	ReturnType *string   `json:"returnType,omitempty"`
	Kinds      []string  `json:"tags"`
	Position   *Position `json:"position,omitempty"`
}

type SuggestionsSearchResult struct {
	Results        []uint64 `json:"results"`
	CurrentVersion uint64   `json:"currentVersion"`
}

type GetAllMethodsParams struct {
	Methods []MethodPointer `json:"methods"`
}

type GetAllMethodsResult struct {
	MethodIDs []*uint64 `json:"methodIds"`
}

type SuggestionsVersionResult struct {
	CurrentVersion uint64 `json:"currentVersion"`
}

// Notifications.

type ExpressionUpdatesNotification struct {
	ContextID ContextID          `json:"contextId"`
	Updates   []ExpressionUpdate `json:"updates"`
}

type ExecutionCompleteNotification struct {
	ContextID ContextID `json:"contextId"`
}

type ExecutionFailedNotification struct {
	ContextID ContextID `json:"contextId"`
	Message   string    `json:"message"`
}

type ExecutionStatusNotification struct {
	ContextID   ContextID    `json:"contextId"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type VisualizationEvaluationFailedNotification struct {
	VisualizationContext
	Message    string      `json:"message"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}
