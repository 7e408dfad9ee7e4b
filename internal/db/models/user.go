package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// Source represents the authentication source for a user account.
// It indicates how the user authenticates and which system owns the account.
type Source string

const (
	// SourceLocal indicates the user authenticates with a local database password.
	SourceLocal Source = "local"
	// SourceDirectory indicates the account is directory-managed: it was
	// provisioned from an LDAP directory and authenticates against it.
	SourceDirectory Source = "directory"
	// SourceOIDC indicates the user authenticates via OpenID Connect (OIDC).
	SourceOIDC Source = "oidc"
)

// User represents a user account in the system.
// Users can authenticate via local database, LDAP directory, or OIDC.
// Directory and OIDC accounts are provisioned automatically on first login;
// local accounts are created by an administrator and are never shadowed by
// an external account of the same name.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:255"`
	// Password is the Argon2id hashed password (only used for local authentication).
	Password string `gorm:"size:255"`
	// DisplayName is the user's full name as supplied by the account source.
	DisplayName string `gorm:"size:255"`
	// Admin grants access to the administrative area.
	Admin bool
	// Source indicates how this user authenticates (local, directory, or oidc).
	Source Source `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the external identifier for directory (DN) or OIDC (sub claim) users.
	ExternalID string `gorm:"size:255"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// DirectoryManaged reports whether this account is owned by the LDAP
// directory. Only directory-managed accounts may authenticate via the
// directory path.
func (u *User) DirectoryManaged() bool {
	return u.Source == SourceDirectory
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating local user passwords.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
