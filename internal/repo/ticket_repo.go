// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ticket model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. Access decisions are made in
// internal/policy and arrive here already reduced to a TicketFilter.
//
// Error semantics:
//   - When a ticket is not found, functions return gorm.ErrRecordNotFound
//     (exported in this package as ErrNotFound).
//   - On other DB errors, the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/policy"
)

// TicketWithClient is a listing row: the ticket plus the owning client's
// display name resolved by a LEFT JOIN, so the listing never needs N+1
// reads.
type TicketWithClient struct {
	domain.Ticket
	ClientName string `json:"client_name" gorm:"column:client_name"`
}

// CreateTicket inserts a new Ticket row. Status, priority, and timestamps
// are expected to be set by the caller (the service applies defaults).
func CreateTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.LastUpdatedAt = now
	return db.WithContext(ctx).Create(t).Error
}

// ListTickets returns tickets matching the policy filter, newest first,
// each carrying the owning client's name.
func ListTickets(ctx context.Context, db *gorm.DB, f policy.TicketFilter) ([]TicketWithClient, error) {
	q := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Select("tickets.*, users.name AS client_name").
		Joins("LEFT JOIN users ON users.id = tickets.client_id")

	switch {
	case f.ClientID != nil:
		q = q.Where("tickets.client_id = ?", *f.ClientID)
	case f.AgentID != nil:
		q = q.Where("tickets.agent_id = ?", *f.AgentID)
	case f.Unassigned:
		q = q.Where("tickets.agent_id IS NULL")
	}

	var out []TicketWithClient
	err := q.Order("tickets.created_at desc, tickets.id desc").Scan(&out).Error
	return out, err
}

// GetTicket fetches a single ticket by ID, or ErrNotFound if missing.
// Ownership checks are the caller's job; the row is returned regardless of
// who owns it.
func GetTicket(ctx context.Context, db *gorm.DB, id uint) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// TicketPatch carries the full replacement state an update writes. Every
// field is written; partial patches are resolved by the service before
// reaching the repository.
type TicketPatch struct {
	Status   domain.Status
	Priority domain.Priority
	AgentID  *uint
}

// UpdateTicket writes status, priority, and assignment, stamping
// last_updated_at. Returns ErrNotFound if no row matched.
func UpdateTicket(ctx context.Context, db *gorm.DB, id uint, p TicketPatch) error {
	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          p.Status,
			"priority":        p.Priority,
			"agent_id":        p.AgentID,
			"last_updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountTicketsByStatus returns a map from status to ticket count. Every
// known status appears in the map; statuses with no tickets map to zero.
func CountTicketsByStatus(ctx context.Context, db *gorm.DB) (map[domain.Status]int64, error) {
	counts := make(map[domain.Status]int64, 3)
	for _, s := range domain.Statuses() {
		counts[s] = 0
	}

	var rows []struct {
		Status domain.Status
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}
