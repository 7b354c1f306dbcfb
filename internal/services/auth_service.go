// Package services – AuthService
//
// This file implements AuthService, which owns login, profile lookup, and
// password changes. It verifies credentials against the stored bcrypt hash
// and issues signed bearer tokens; it never returns which half of a failed
// login was wrong.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// the acting user identifier but never credentials.
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

// TokenIssuer is the signing dependency AuthService needs from the auth
// package.
type TokenIssuer interface {
	Issue(userID uint, role domain.Role, name string) (string, error)
}

// AuthService authenticates users and manages their credentials.
type AuthService struct {
	DB     *gorm.DB
	Tokens TokenIssuer

	// BcryptCost is used when hashing new passwords. Zero selects the
	// bcrypt default.
	BcryptCost int
}

// LoginResult bundles the issued token with the authenticated user.
type LoginResult struct {
	Token string
	User  *domain.User
}

// Login verifies the email/password pair and returns a signed token.
// Unknown email and wrong password both collapse to ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(u.ID, u.Role, u.Name)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("user.id", int64(u.ID)))
	return &LoginResult{Token: token, User: u}, nil
}

// Profile returns the account behind an authenticated user ID.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "Profile",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))),
	)
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password and stores a new hash.
// The force-password-change flag is cleared together with the hash write.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	tr := otel.Tracer("services/AuthService")
	ctx, span := tr.Start(ctx, "ChangePassword",
		trace.WithAttributes(attribute.Int64("user.id", int64(userID))),
	)
	defer span.End()

	if len(next) < auth.MinPasswordLength {
		return ErrWeakPassword
	}

	u, err := repo.GetUser(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := auth.VerifyPassword(u.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next, s.BcryptCost)
	if err != nil {
		return err
	}
	return repo.UpdateUserPassword(ctx, s.DB, userID, hash)
}
