// Package services – UserService
//
// This file implements UserService, which owns account provisioning and
// removal. New accounts are issued a generated temporary password that is
// returned exactly once; only the bcrypt hash is stored, with the
// force-password-change flag set. Deletion refuses to remove the last
// admin; the guard and the delete run in one repository transaction.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-helpdesk-backend/internal/auth"
	"github.com/tbourn/go-helpdesk-backend/internal/domain"
	"github.com/tbourn/go-helpdesk-backend/internal/repo"
)

// UserService provides account management operations.
type UserService struct {
	DB *gorm.DB

	// BcryptCost is used when hashing generated passwords. Zero selects the
	// bcrypt default.
	BcryptCost int
}

// ProvisionedUser is a freshly created account together with its temporary
// plaintext password. The plaintext exists only in this value; it is never
// persisted or logged.
type ProvisionedUser struct {
	User         *domain.User
	TempPassword string
}

// CreateClient provisions a new client account with a temporary password.
// Agents use this when registering a caller who has no account yet.
func (s *UserService) CreateClient(ctx context.Context, name, email string) (*ProvisionedUser, error) {
	return s.create(ctx, name, email, domain.RoleClient)
}

// Create provisions an account with any valid role (admin operation).
func (s *UserService) Create(ctx context.Context, name, email string, role domain.Role) (*ProvisionedUser, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.create(ctx, name, email, role)
}

func (s *UserService) create(ctx context.Context, name, email string, role domain.Role) (*ProvisionedUser, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.role", string(role))),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return nil, ErrMissingFields
	}

	temp, err := auth.GenerateTempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(temp, s.BcryptCost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:                name,
		Email:               email,
		PasswordHash:        hash,
		Role:                role,
		ForcePasswordChange: true,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &ProvisionedUser{User: u, TempPassword: temp}, nil
}

// Get returns a single user by ID.
func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns every account ordered by ID.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsers(ctx, s.DB)
}

// ListAgents returns all staff accounts (agents and admins) ordered by name.
func (s *UserService) ListAgents(ctx context.Context) ([]domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "ListAgents")
	defer span.End()

	return repo.ListAgents(ctx, s.DB)
}

// Update changes a user's name, email, and role.
func (s *UserService) Update(ctx context.Context, id uint, name, email string, role domain.Role) (*domain.User, error) {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" {
		return nil, ErrMissingFields
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if err := repo.UpdateUserProfile(ctx, s.DB, id, name, email, role); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repo.ErrDuplicate):
			return nil, ErrDuplicateEmail
		default:
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Delete removes an account. Deleting the last remaining admin is refused
// with ErrLastAdmin; the check and the delete share one transaction so
// concurrent deletes cannot race past the guard.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	tr := otel.Tracer("services/UserService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("user.id", int64(id))),
	)
	defer span.End()

	if err := repo.DeleteUserGuarded(ctx, s.DB, id); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return ErrUserNotFound
		case errors.Is(err, repo.ErrLastAdmin):
			return ErrLastAdmin
		default:
			return err
		}
	}
	return nil
}
