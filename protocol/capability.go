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

// Capability names gate access to context mutation and update streams.
// Grants are process-local and scoped to one client session.
const (
	CapabilityCanModify          = "executionContext/canModify"
	CapabilityReceivesUpdates    = "executionContext/receivesUpdates"
	CapabilityReceivesSuggestion = "search/receivesSuggestionsDatabaseUpdates"
)

// CapabilityRegistration is a grant for one capability, optionally scoped to
// a context.
type CapabilityRegistration struct {
	Method    string     `json:"method"`
	ContextID *ContextID `json:"contextId,omitempty"`
}

// GrantsFor returns the pair of grants handed out on context creation.
func GrantsFor(id ContextID) (canModify, receivesUpdates CapabilityRegistration) {
	canModify = CapabilityRegistration{Method: CapabilityCanModify, ContextID: &id}
	receivesUpdates = CapabilityRegistration{Method: CapabilityReceivesUpdates, ContextID: &id}
	return
}
