package domain

import (
	"encoding/json"
	"time"
)

// Outbox message kinds.
const (
	OutboxApprovalEmail = "ngo.approval_email"
)

// Outbox message states.
const (
	OutboxPending   = "pending"
	OutboxDelivered = "delivered"
	OutboxDead      = "dead"
)

// OutboxMessage records a side effect that must be delivered after the write
// that produced it has committed.
type OutboxMessage struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Payload       json.RawMessage `json:"payload"`
	State         string          `json:"state"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"lastError,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
}

// ApprovalEmail is the payload of an OutboxApprovalEmail message and the
// request body of the notification relay.
type ApprovalEmail struct {
	Email   string `json:"email"`
	NgoName string `json:"ngoName"`
}
