// Package auth provides the token primitive consumed by the RBAC core: an
// opaque bearer token carrying a member identity and role code. The core only
// ever reads the role code out of an already-validated principal.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Principal is the identity carried by a validated token.
type Principal struct {
	MemberID uint   `json:"member_id"`
	LoginID  string `json:"login_id"`
	RoleCode string `json:"role_code"`
}

// TokenProvider issues and validates opaque bearer tokens.
type TokenProvider interface {
	Issue(p Principal) (string, error)
	Validate(token string) (*Principal, error)
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks if a password matches the hash
func VerifyPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
