// Package domain defines the persistence models for users, tickets, and
// comments. These types are mapped with GORM and form the core data layer
// of the helpdesk application.
package domain

import "time"

// Role identifies what a user is allowed to do. Clients open tickets;
// first- and second-level agents work them; admins additionally manage
// user accounts and can assign tickets to anyone.
type Role string

// Known roles.
const (
	RoleClient  Role = "client"
	RoleAgentL1 Role = "agent_l1"
	RoleAgentL2 Role = "agent_l2"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAgentL1, RoleAgentL2, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether r is an agent or admin role, i.e. anything that may
// work tickets it does not own.
func (r Role) Staff() bool {
	return r == RoleAgentL1 || r == RoleAgentL2 || r == RoleAdmin
}

// Status is the lifecycle state of a ticket.
type Status string

// Ticket lifecycle states. New tickets always start as StatusOpen.
const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// Valid reports whether s is a known ticket status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Statuses lists every known ticket status. Aggregations iterate this slice
// so that empty buckets are still reported with a zero count.
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusClosed}
}

// Priority is the urgency assigned to a ticket.
type Priority string

// Ticket priorities. PriorityMedium is the default for new tickets.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known ticket priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// User represents an account that can authenticate against the API.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name / Email: display name and unique login identifier.
//   - PasswordHash: bcrypt hash; never serialized to JSON.
//   - Role: one of the Role constants (enforced by DB constraint).
//   - ForcePasswordChange: set when an account was provisioned with a
//     temporary password; cleared on the first successful password change.
//
// Invariant: at least one admin user must exist at all times. The rule is
// enforced at deletion time inside a single transaction, not at creation.
type User struct {
	ID                  uint      `json:"id"                    gorm:"primaryKey"`
	Name                string    `json:"name"                  gorm:"type:varchar(120);not null"`
	Email               string    `json:"email"                 gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash        string    `json:"-"                     gorm:"type:varchar(100);not null"`
	Role                Role      `json:"role"                  gorm:"type:varchar(16);not null;check:role IN ('client','agent_l1','agent_l2','admin')"`
	ForcePasswordChange bool      `json:"force_password_change" gorm:"not null;default:false"`
	CreatedAt           time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Ticket represents a support request opened by a client.
//
// Fields:
//   - ClientID: owning client; required and immutable after creation.
//   - AgentID: assigned agent; nil while the ticket is unassigned.
//   - Status / Priority: see the Status and Priority constants.
//   - LastUpdatedAt: stamped by every update (status/priority/assignment).
//
// Tickets are never hard-deleted; they only move through statuses.
type Ticket struct {
	ID            uint      `json:"id"             gorm:"primaryKey"`
	Title         string    `json:"title"          gorm:"type:varchar(255);not null"`
	Description   string    `json:"description"    gorm:"type:text;not null"`
	Status        Status    `json:"status"         gorm:"type:varchar(16);not null;default:'open';check:status IN ('open','in_progress','closed')"`
	Priority      Priority  `json:"priority"       gorm:"type:varchar(16);not null;default:'medium';check:priority IN ('low','medium','high')"`
	ClientID      uint      `json:"client_id"      gorm:"not null;index:idx_ticket_client"`
	AgentID       *uint     `json:"agent_id"       gorm:"index:idx_ticket_agent"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// Client is the owning user. Tickets cannot outlive their client.
	Client User `json:"-" gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }

// Comment represents a single note on a ticket, written by the owning client
// or by staff. Comments are immutable once created; there is no update or
// delete operation.
//
// IsPrivate marks internal staff notes. A comment authored by a client is
// always stored with IsPrivate=false regardless of the requested value.
type Comment struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	TicketID  uint      `json:"ticket_id"  gorm:"not null;index:idx_ticket_comments,priority:1"`
	AuthorID  uint      `json:"author_id"  gorm:"not null;index"`
	IsPrivate bool      `json:"is_private" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_ticket_comments,priority:2"`

	// Ticket is the parent ticket. Comments are cascade-deleted if their
	// ticket is removed.
	Ticket Ticket `json:"-" gorm:"foreignKey:TicketID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }
