package domain

import "time"

// Session is one signed-in device. Tokens name their session, so deleting
// it signs the token out.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// Identity returns the principal bound to the session.
func (s *Session) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	return Identity{ID: s.UserID, Email: s.Email, SessionID: s.ID}
}
