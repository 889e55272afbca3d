package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/internal/infrastructure/buffer"
	"github.com/fastygo/greenbite/usecase"
)

// BufferBridge turns use case writes into buffer items addressed by document path.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferProfile(ctx context.Context, userID string, fields map[string]interface{}) error {
	if b.processor == nil || userID == "" || len(fields) == 0 {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	item := buffer.Item{
		UserID:    userID,
		Entity:    buffer.EntityProfile,
		Operation: buffer.OperationPatch,
		Path:      domain.UserPath(userID),
		Data:      payload,
		Priority:  3,
	}
	return b.processor.BufferOperation(ctx, item)
}

func (b *BufferBridge) BufferFoodItem(ctx context.Context, operation string, userID string, item *domain.FoodItem) error {
	if b.processor == nil || item == nil || item.ID == "" || userID == "" {
		return domain.ErrInvalidPayload
	}
	entry := buffer.Item{
		UserID:    userID,
		Entity:    buffer.EntityFoodItem,
		Operation: operation,
		Path:      domain.FoodItemPath(userID, item.ID),
		Priority:  4,
	}
	switch operation {
	case usecase.OperationSet:
		payload, err := json.Marshal(item)
		if err != nil {
			return err
		}
		entry.Data = payload
	case usecase.OperationDelete:
	default:
		return domain.Invalid("unsupported buffered operation %q", operation)
	}
	return b.processor.BufferOperation(ctx, entry)
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
