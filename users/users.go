package users

import (
	"strings"
	"time"
)

// CredentialState is derived from which password hashes a user carries.
// It is never stored.
type CredentialState string

const (
	StateUnconfirmed  CredentialState = "unconfirmed"   // provisional only, awaiting first login
	StateActive       CredentialState = "active"        // official only
	StatePendingReset CredentialState = "pending_reset" // official plus a forgot-password provisional
)

type User struct {
	ID               int64      `json:"id"`                         // Unique identifier for the user
	Email            string     `json:"email"`                      // Normalised email address
	Name             string     `json:"name"`                       // Display name
	PasswordHash     *string    `json:"-"`                          // Official bcrypt hash - never serialize
	ProvisionalHash  *string    `json:"-"`                          // Provisional bcrypt hash - never serialize
	EmailConfirmedAt *time.Time `json:"emailConfirmedAt,omitempty"` // First successful use of a provisional secret
	Version          int64      `json:"version"`                    // Optimistic-concurrency token
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Credentials is the set of fields the credential lifecycle rewrites in one
// conditional write.
type Credentials struct {
	PasswordHash     *string
	ProvisionalHash  *string
	EmailConfirmedAt *time.Time
}

// NormaliseEmail trims and lower-cases an email so lookups are case-insensitive.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) HasOfficial() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) HasProvisional() bool {
	return u.ProvisionalHash != nil && *u.ProvisionalHash != ""
}

// State reports where the user sits in the password lifecycle.
func (u *User) State() CredentialState {
	switch {
	case u.HasOfficial() && u.HasProvisional():
		return StatePendingReset
	case u.HasOfficial():
		return StateActive
	default:
		return StateUnconfirmed
	}
}

// Credentials returns a copy of the user's current credential fields.
func (u *User) Credentials() Credentials {
	return Credentials{
		PasswordHash:     u.PasswordHash,
		ProvisionalHash:  u.ProvisionalHash,
		EmailConfirmedAt: u.EmailConfirmedAt,
	}
}

// Valid enforces the invariant that at least one hash is always present.
func (c Credentials) Valid() bool {
	return (c.PasswordHash != nil && *c.PasswordHash != "") ||
		(c.ProvisionalHash != nil && *c.ProvisionalHash != "")
}
