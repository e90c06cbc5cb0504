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
package visualization

import (
	"testing"

	"github.com/stretchr/testify/require"
	"lumenlang.dev/runtime/protocol"
)

func attached(expr protocol.ExpressionID) Attached {
	return Attached{
		ID:           protocol.NewVisualizationID(),
		ExpressionID: expr,
		Module:       "Test.Visualization",
		Expression:   protocol.TextExpression{Expression: "encode"},
	}
}

func TestAttachDetachRoundTrip(t *testing.T) {
	r := NewRegistry()
	expr := protocol.NewExpressionID()
	v := attached(expr)

	require.NoError(t, r.Attach(v))
	require.Equal(t, 1, r.Len())
	require.Len(t, r.For(expr), 1)

	require.NoError(t, r.Detach(v.ID, expr))
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.For(expr))
}

func TestAttachDuplicateID(t *testing.T) {
	r := NewRegistry()
	expr := protocol.NewExpressionID()
	v := attached(expr)
	require.NoError(t, r.Attach(v))
	require.Error(t, r.Attach(v))
	require.Equal(t, 1, r.Len())
}

func TestDetachRequiresMatchingExpression(t *testing.T) {
	r := NewRegistry()
	expr := protocol.NewExpressionID()
	v := attached(expr)
	require.NoError(t, r.Attach(v))

	require.Error(t, r.Detach(v.ID, protocol.NewExpressionID()))
	require.Error(t, r.Detach(protocol.NewVisualizationID(), expr))
	require.Equal(t, 1, r.Len())
}

func TestModifyRetargetsInvertedIndex(t *testing.T) {
	r := NewRegistry()
	exprA := protocol.NewExpressionID()
	exprB := protocol.NewExpressionID()
	v := attached(exprA)
	require.NoError(t, r.Attach(v))

	require.NoError(t, r.Modify(v.ID, exprB, v.Module, protocol.TextExpression{Expression: "other"}))
	require.Empty(t, r.For(exprA))
	require.Len(t, r.For(exprB), 1)

	stored, ok := r.Get(v.ID)
	require.True(t, ok)
	require.Equal(t, exprB, stored.ExpressionID)
	require.Equal(t, protocol.TextExpression{Expression: "other"}, stored.Expression)
}

func TestInvertedIndexStaysInBijection(t *testing.T) {
	r := NewRegistry()
	expr := protocol.NewExpressionID()
	first := attached(expr)
	second := attached(expr)
	require.NoError(t, r.Attach(first))
	require.NoError(t, r.Attach(second))
	require.Len(t, r.For(expr), 2)

	require.NoError(t, r.Detach(first.ID, expr))
	watching := r.For(expr)
	require.Len(t, watching, 1)
	require.Equal(t, second.ID, watching[0].ID)
}

func TestCloneIsDeep(t *testing.T) {
	r := NewRegistry()
	expr := protocol.NewExpressionID()
	v := attached(expr)
	require.NoError(t, r.Attach(v))

	clone := r.Clone()
	require.NoError(t, clone.Detach(v.ID, expr))
	require.Equal(t, 1, r.Len())
	require.Equal(t, 0, clone.Len())
}
