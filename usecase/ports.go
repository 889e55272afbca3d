package usecase

import (
	"context"

	"github.com/fastygo/greenbite/domain"
)

// Buffered write operations.
const (
	OperationSet    = "set"
	OperationPatch  = "patch"
	OperationDelete = "delete"
)

// OperationBuffer abstracts the buffer processor so use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferProfile(ctx context.Context, userID string, fields map[string]interface{}) error
	BufferFoodItem(ctx context.Context, operation string, userID string, item *domain.FoodItem) error
}

// Notifier delivers the approval email through the notification relay.
type Notifier interface {
	SendApprovalEmail(ctx context.Context, mail domain.ApprovalEmail) error
}

// WorkflowMetrics receives workflow outcomes. Labels are short lowercase words.
type WorkflowMetrics interface {
	Approval(result string)
	Notification(result string)
	Rejection(result string)
	Donation(event string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) Approval(string)     {}
func (NopMetrics) Notification(string) {}
func (NopMetrics) Rejection(string)    {}
func (NopMetrics) Donation(string)     {}
