package domain

import (
	"strings"
	"time"
)

// Identity is the authenticated principal. It is created on sign-in,
// dropped on sign-out and passed explicitly into every use case call.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

func (i *Identity) IsZero() bool {
	return i == nil || i.ID == ""
}

// Credentials is the persisted sign-in record for an identity.
type Credentials struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (c *Credentials) Identity() Identity {
	if c == nil {
		return Identity{}
	}
	return Identity{ID: c.ID, Email: c.Email, DisplayName: c.DisplayName}
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
