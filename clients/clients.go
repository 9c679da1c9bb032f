// Package clients holds the customer records a company keeps. Every record
// belongs to exactly one company and is only reachable through it.
package clients

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
)

type Client struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"companyId"` // Owning tenant
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Document  string     `json:"document,omitempty"` // Tax or identity document of the customer
	Notes     string     `json:"notes,omitempty"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Basics are the user-editable fields of a client.
type Basics struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Document string `json:"document"`
	Notes    string `json:"notes"`
}

const (
	maxNameLength  = 200
	maxNotesLength = 4000
)

// Normalise trims every field and lower-cases the email.
func (b Basics) Normalise() Basics {
	return Basics{
		Name:     strings.TrimSpace(b.Name),
		Email:    strings.ToLower(strings.TrimSpace(b.Email)),
		Phone:    strings.TrimSpace(b.Phone),
		Document: strings.TrimSpace(b.Document),
		Notes:    strings.TrimSpace(b.Notes),
	}
}

// Validate checks normalised basics.
func (b Basics) Validate() error {
	switch {
	case b.Name == "":
		return fmt.Errorf("client name is required: %w", apperrors.ErrInvalidArgument)
	case len(b.Name) > maxNameLength:
		return fmt.Errorf("client name longer than %d: %w", maxNameLength, apperrors.ErrInvalidArgument)
	case b.Email != "" && !strings.Contains(b.Email, "@"):
		return fmt.Errorf("client email %q is not valid: %w", b.Email, apperrors.ErrInvalidArgument)
	case len(b.Notes) > maxNotesLength:
		return fmt.Errorf("client notes longer than %d: %w", maxNotesLength, apperrors.ErrInvalidArgument)
	}
	return nil
}

func (c *Client) Basics() Basics {
	return Basics{Name: c.Name, Email: c.Email, Phone: c.Phone, Document: c.Document, Notes: c.Notes}
}

func (c *Client) Apply(b Basics) {
	c.Name = b.Name
	c.Email = b.Email
	c.Phone = b.Phone
	c.Document = b.Document
	c.Notes = b.Notes
}

func (c *Client) Deleted() bool {
	return c.DeletedAt != nil
}
