// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Comment model.
//
// Comments are append-only: there is no update or delete. Role-based
// filtering does NOT live here; ListComments returns every comment on a
// ticket and the caller decides what to expose. ListPublicComments exists
// for callers that want the filtered view.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
)

// CreateComment inserts a new comment row. Content validation happens in
// the service; the repository only persists.
func CreateComment(ctx context.Context, db *gorm.DB, c *domain.Comment) error {
	c.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(c).Error
}

// ListComments returns every comment on a ticket ordered deterministically
// (CreatedAt ASC, ID ASC), private ones included.
func ListComments(ctx context.Context, db *gorm.DB, ticketID uint) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListPublicComments returns only the non-private comments on a ticket,
// oldest first.
func ListPublicComments(ctx context.Context, db *gorm.DB, ticketID uint) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("ticket_id = ? AND is_private = ?", ticketID, false).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetComment fetches a comment by ID, or ErrNotFound if missing.
func GetComment(ctx context.Context, db *gorm.DB, id uint) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CountComments uses a raw COUNT so a missing table surfaces as an error.
func CountComments(ctx context.Context, db *gorm.DB, ticketID uint) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM comments WHERE ticket_id = ?", ticketID).
		Scan(&total).Error
	return total, err
}
