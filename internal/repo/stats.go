// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
)

// CommentsStats returns aggregate metadata for a ticket's comments: the total
// number of rows and the maximum CreatedAt timestamp among those rows.
//
// It executes two lightweight queries against the comments table scoped to
// the provided ticketID. When the ticket has no comments, the returned count
// is 0 and maxCreatedAt is nil.
//
// Return values:
//   - count:        total comments for ticketID
//   - maxCreatedAt: pointer to the greatest CreatedAt, or nil if no rows
//   - err:          database error, if any
func CommentsStats(ctx context.Context, db *gorm.DB, ticketID uint) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Comment{}).Where("ticket_id = ?", ticketID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

// TicketsStats returns aggregate metadata for a listing scope: the total
// number of tickets and the greatest LastUpdatedAt among them. Handlers use
// it to derive a weak ETag for ticket listings.
func TicketsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Ticket{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		LastUpdatedAt time.Time
	}
	if err = q.Select("last_updated_at").Order("last_updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.LastUpdatedAt, nil
}
