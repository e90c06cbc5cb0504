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

// VisualizationExpression is the preprocessing applied to a cached value:
// either a source expression compiled in the visualization module, or a
// pointer to an existing method with extra positional arguments.
type VisualizationExpression interface {
	visualizationExpression()
}

// TextExpression is a preprocessing function given as source text.
type TextExpression struct {
	Expression string `json:"expression"`
}

func (TextExpression) visualizationExpression() {}

// MethodExpression points at a method to use as the preprocessing function.
type MethodExpression struct {
	MethodPointer       MethodPointer `json:"methodPointer"`
	PositionalArguments []string      `json:"positionalArgumentsExpressions"`
}

func (MethodExpression) visualizationExpression() {}

const (
	vizExprText   = "Text"
	vizExprMethod = "ModuleMethod"
)

// VisualizationExpressionBox wraps a VisualizationExpression for JSON
// transport.
type VisualizationExpressionBox struct {
	Expression VisualizationExpression
}

func (b VisualizationExpressionBox) MarshalJSON() ([]byte, error) {
	switch e := b.Expression.(type) {
	case TextExpression:
		return json.Marshal(struct {
			Type string `json:"type"`
			TextExpression
		}{vizExprText, e})
	case MethodExpression:
		return json.Marshal(struct {
			Type string `json:"type"`
			MethodExpression
		}{vizExprMethod, e})
	case nil:
		return nil, fmt.Errorf("cannot marshal empty visualization expression")
	default:
		return nil, fmt.Errorf("unknown visualization expression type %T", e)
	}
}

func (b *VisualizationExpressionBox) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	switch head.Type {
	case vizExprText:
		var e TextExpression
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		b.Expression = e
	case vizExprMethod:
		var e MethodExpression
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		b.Expression = e
	default:
		return fmt.Errorf("unknown visualization expression type %q", head.Type)
	}
	return nil
}

// VisualizationConfiguration describes how to compute a visualization
// payload from a cached value.
type VisualizationConfiguration struct {
	ExecutionContextID ContextID                  `json:"executionContextId"`
	Module             string                     `json:"visualizationModule"`
	Expression         VisualizationExpressionBox `json:"expression"`
}

// VisualizationContext keys a visualization payload on the wire.
type VisualizationContext struct {
	VisualizationID VisualizationID `json:"visualizationId"`
	ContextID       ContextID       `json:"contextId"`
	ExpressionID    ExpressionID    `json:"expressionId"`
}
