package monitor

import "time"

type Status struct {
	Store         string    `json:"store"`
	PostgreSQL    bool      `json:"postgresql"`
	Redis         bool      `json:"redis"`
	Buffer        bool      `json:"buffer"`
	BufferSize    int       `json:"buffer_size"`
	OutboxPending int       `json:"outbox_pending"`
	LastCheck     time.Time `json:"last_check"`
}

// Healthy reports whether the primary dependencies answered the last check.
func (s Status) Healthy() bool {
	return s.PostgreSQL && s.Redis
}
