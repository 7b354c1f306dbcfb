// Package policy contains the access-control decisions for tickets and
// comments as pure functions. Nothing in this package touches the database
// or the HTTP layer: callers hand in the authenticated actor and the row
// facts they already hold, and get back a decision.
//
// Rules:
//   - Clients see and read only their own tickets.
//   - Agents and admins see everything, optionally scoped to "mine" or
//     "unassigned".
//   - Only clients create tickets, and always as themselves.
//   - Only staff update tickets; agents self-assign, admins assign freely.
//   - Clients never author private comments; the flag is coerced off.
package policy

import "github.com/tbourn/go-helpdesk-backend/internal/domain"

// Actor is the authenticated principal a request acts as. It is built from
// verified token claims by the auth middleware and passed explicitly into
// services.
type Actor struct {
	ID   uint
	Role domain.Role
}

// ListScope narrows a staff ticket listing. Clients ignore scope entirely;
// their listing is always their own tickets.
type ListScope string

// Known listing scopes.
const (
	ScopeAll        ListScope = "all"
	ScopeMine       ListScope = "mine"
	ScopeUnassigned ListScope = "unassigned"
)

// Valid reports whether s is a known scope. The empty scope is valid and
// means ScopeAll.
func (s ListScope) Valid() bool {
	switch s {
	case "", ScopeAll, ScopeMine, ScopeUnassigned:
		return true
	}
	return false
}

// TicketFilter is the repository-level restriction derived from an actor and
// a requested scope. Exactly one of the pointer fields is set, or none for
// an unrestricted listing.
type TicketFilter struct {
	// ClientID restricts to tickets owned by this client.
	ClientID *uint
	// AgentID restricts to tickets assigned to this agent.
	AgentID *uint
	// Unassigned restricts to tickets with no agent.
	Unassigned bool
}

// TicketListFilter maps an actor and scope to the filter the repository
// applies. Clients always get their own tickets regardless of scope.
func TicketListFilter(actor Actor, scope ListScope) TicketFilter {
	if actor.Role == domain.RoleClient {
		id := actor.ID
		return TicketFilter{ClientID: &id}
	}
	switch scope {
	case ScopeMine:
		id := actor.ID
		return TicketFilter{AgentID: &id}
	case ScopeUnassigned:
		return TicketFilter{Unassigned: true}
	default:
		return TicketFilter{}
	}
}

// CanReadTicket reports whether the actor may read a ticket owned by
// clientID. Staff read everything; clients only their own.
func CanReadTicket(actor Actor, clientID uint) bool {
	if actor.Role.Staff() {
		return true
	}
	return actor.ID == clientID
}

// CanCreateTicket reports whether the actor may open a new ticket.
// Only clients open tickets; staff work them.
func CanCreateTicket(actor Actor) bool {
	return actor.Role == domain.RoleClient
}

// CanUpdateTicket reports whether the actor may change a ticket's status,
// priority, or assignment.
func CanUpdateTicket(actor Actor) bool {
	return actor.Role.Staff()
}

// ResolveAssignee decides the agent a ticket update assigns. Admins assign
// whoever they requested (including nil to unassign); every other agent is
// forced to self-assignment no matter what was requested.
func ResolveAssignee(actor Actor, requested *uint) *uint {
	if actor.Role == domain.RoleAdmin {
		return requested
	}
	id := actor.ID
	return &id
}

// CommentVisibility returns the stored privacy flag for a new comment.
// Client-authored comments are always public.
func CommentVisibility(actor Actor, requestedPrivate bool) bool {
	if actor.Role == domain.RoleClient {
		return false
	}
	return requestedPrivate
}

// CanManageUsers reports whether the actor may create, update, or delete
// arbitrary user accounts.
func CanManageUsers(actor Actor) bool {
	return actor.Role == domain.RoleAdmin
}
