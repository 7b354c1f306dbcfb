// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A unique-email violation surfaces as ErrDuplicate.
//   - On other DB errors, the raw gorm error is propagated.
//
// The single business invariant living at this layer is DeleteUserGuarded:
// the admin count and the delete run inside one transaction so two
// concurrent deletes cannot remove the final admin between a check and an
// act performed separately.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-helpdesk-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new user row. CreatedAt is set to UTC. A duplicate
// email surfaces from the unique index as ErrDuplicate; there is no
// pre-check read.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	u.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUser fetches a single user by ID, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a single user by email, or ErrNotFound if missing.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns every user ordered by ID ascending.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}

// ListAgents returns all non-client users (agents and admins) ordered by
// name ascending.
func ListAgents(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("role <> ?", domain.RoleClient).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// UpdateUserProfile updates name, email, and role of an existing user.
// Returns ErrNotFound when no row matches and ErrDuplicate when the new
// email is already taken.
func UpdateUserProfile(ctx context.Context, db *gorm.DB, id uint, name, email string, role domain.Role) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "email": email, "role": role})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateUserPassword stores a new password hash and clears the
// force-password-change flag in one statement. Returns ErrNotFound when no
// row matches.
func UpdateUserPassword(ctx context.Context, db *gorm.DB, id uint, passwordHash string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": passwordHash, "force_password_change": false})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountAdmins returns the number of admin users.
func CountAdmins(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("role = ?", domain.RoleAdmin).
		Count(&total).Error
	return total, err
}

// ErrLastAdmin is returned by DeleteUserGuarded when the target is the only
// remaining admin. Returning it from inside the transaction closure rolls
// the transaction back.
var ErrLastAdmin = errors.New("last admin")

// DeleteUserGuarded removes a user, refusing to delete the last admin.
// The admin count and the delete run in ONE transaction; SQLite serializes
// writers, so two concurrent deletes cannot both pass the guard.
func DeleteUserGuarded(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return err
		}
		if u.Role == domain.RoleAdmin {
			var admins int64
			if err := tx.Model(&domain.User{}).
				Where("role = ? AND id <> ?", domain.RoleAdmin, id).
				Count(&admins).Error; err != nil {
				return err
			}
			if admins == 0 {
				return ErrLastAdmin
			}
		}
		return tx.Delete(&domain.User{}, "id = ?", id).Error
	})
}
