package auth

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned by VerifyPassword for any verification
// failure. Callers map it to a generic "invalid credentials" answer so an
// attacker cannot distinguish a bad password from a malformed hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// MinPasswordLength is the minimum accepted plaintext length for new
// passwords.
const MinPasswordLength = 8

// tempPasswordAlphabet deliberately omits ambiguous characters (0/O, 1/l/I)
// because temporary passwords are read aloud or typed from a screen.
const tempPasswordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// tempPasswordLength is the generated length for provisioned accounts.
const tempPasswordLength = 12

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// Costs outside bcrypt's valid range fall back to the library default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a bcrypt hash against a candidate plaintext.
// Every failure mode collapses to ErrPasswordMismatch.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// GenerateTempPassword produces a random temporary password for provisioned
// accounts. The plaintext is returned exactly once in the creation response;
// only the hash is stored.
func GenerateTempPassword() (string, error) {
	buf := make([]byte, tempPasswordLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate temp password: %w", err)
	}
	for i, b := range buf {
		buf[i] = tempPasswordAlphabet[int(b)%len(tempPasswordAlphabet)]
	}
	return string(buf), nil
}
