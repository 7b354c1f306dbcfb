// Package services defines the business logic for users, tickets, and comments.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Authentication errors.
var (
	// ErrInvalidCredentials is returned on login failure. It deliberately does
	// not distinguish an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWeakPassword is returned when a new password does not meet the
	// minimum length requirement.
	ErrWeakPassword = errors.New("password too short")
)

// User errors.
var (
	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateEmail is returned when a create or update collides with an
	// existing account's email.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInvalidRole is returned when a role value is outside the allowed set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrLastAdmin is returned when deleting a user would leave the system
	// without any admin account.
	ErrLastAdmin = errors.New("cannot delete the last admin")
)

// Ticket errors.
var (
	// ErrTicketNotFound indicates that the requested ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrForbidden is returned when the actor's role or ownership does not
	// permit the requested ticket or comment operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrMissingFields is returned when a ticket create request lacks a title
	// or description.
	ErrMissingFields = errors.New("title and description are required")

	// ErrInvalidStatus is returned when a status value is outside the allowed set.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidPriority is returned when a priority value is outside the allowed set.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrInvalidScope is returned when a ticket listing scope is not one of
	// all, mine, or unassigned.
	ErrInvalidScope = errors.New("invalid scope")
)

// Comment errors.
var (
	// ErrEmptyContent is returned when a comment create request contains no
	// content after trimming.
	ErrEmptyContent = errors.New("comment content is empty")
)
