package inventory

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/usecase"
)

// ImageStore uploads item photos and returns their public URL.
type ImageStore interface {
	UploadImage(ctx context.Context, name string, r io.Reader) (string, error)
}

// ExpiryScanner reads a printed expiry date from a photo and returns it as YYYY-MM-DD.
type ExpiryScanner interface {
	ScanExpiry(ctx context.Context, filename string, image []byte) (string, error)
}

type UseCase struct {
	dir     repository.Directory
	buffer  usecase.OperationBuffer
	images  ImageStore
	scanner ExpiryScanner
	logger  *zap.Logger
	now     func() time.Time
}

func New(
	dir repository.Directory,
	buffer usecase.OperationBuffer,
	images ImageStore,
	scanner ExpiryScanner,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		dir:     dir,
		buffer:  buffer,
		images:  images,
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *UseCase) List(ctx context.Context, identity domain.Identity) ([]domain.FoodItem, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	docs, err := uc.dir.List(ctx, domain.FoodItemsPath(identity.ID))
	if err != nil {
		return nil, err
	}
	items := make([]domain.FoodItem, 0, len(docs))
	for i := range docs {
		var item domain.FoodItem
		if err := docs[i].Decode(&item); err != nil {
			uc.logger.Warn("skipping malformed food item", zap.String("path", docs[i].Path), zap.Error(err))
			continue
		}
		item.ID = docs[i].ID()
		items = append(items, item)
	}
	return items, nil
}

func (uc *UseCase) Get(ctx context.Context, identity domain.Identity, id string) (*domain.FoodItem, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	doc, err := uc.dir.Get(ctx, domain.FoodItemPath(identity.ID, id))
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrFoodItemNotFound
		}
		return nil, err
	}
	var item domain.FoodItem
	if err := doc.Decode(&item); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "decode food item", err)
	}
	item.ID = id
	return &item, nil
}

// Add stores a new item. Name, a positive quantity and an expiry date are required.
func (uc *UseCase) Add(ctx context.Context, identity domain.Identity, item domain.FoodItem) (*domain.FoodItem, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	item.Name = strings.TrimSpace(item.Name)
	if err := item.Validate(); err != nil {
		return nil, err
	}
	item.ID = uuid.NewString()
	item.CreatedAt = uc.now().UTC()
	if item.Status == "" {
		item.Status = domain.ItemStatusAvailable
	}

	if err := uc.dir.Set(ctx, domain.FoodItemPath(identity.ID, item.ID), item); err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationSet, identity.ID, &item, err) {
			return &item, nil
		}
		return nil, err
	}
	return &item, nil
}

// Update replaces the editable fields of an item; status, photo and creation time are kept.
func (uc *UseCase) Update(ctx context.Context, identity domain.Identity, id string, input domain.FoodItem) (*domain.FoodItem, error) {
	item, err := uc.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	item.Name = strings.TrimSpace(input.Name)
	item.Quantity = input.Quantity
	item.ExpiryDate = input.ExpiryDate
	item.AlertEnabled = input.AlertEnabled
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := uc.dir.Set(ctx, domain.FoodItemPath(identity.ID, id), item); err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationSet, identity.ID, item, err) {
			return item, nil
		}
		return nil, err
	}
	return item, nil
}

func (uc *UseCase) Delete(ctx context.Context, identity domain.Identity, id string) error {
	if identity.IsZero() {
		return domain.ErrUnauthorized
	}
	if err := uc.dir.Delete(ctx, domain.FoodItemPath(identity.ID, id)); err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.ErrFoodItemNotFound
		}
		if uc.shouldBuffer(ctx, usecase.OperationDelete, identity.ID, &domain.FoodItem{ID: id}, err) {
			return nil
		}
		return err
	}
	return nil
}

// ToggleAlert flips the expiry alert flag and returns the updated item.
func (uc *UseCase) ToggleAlert(ctx context.Context, identity domain.Identity, id string) (*domain.FoodItem, error) {
	item, err := uc.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	item.AlertEnabled = !item.AlertEnabled
	if err := uc.dir.Patch(ctx, domain.FoodItemPath(identity.ID, id), map[string]interface{}{
		"alertEnabled": item.AlertEnabled,
	}); err != nil {
		return nil, err
	}
	return item, nil
}

// AttachImage uploads a photo of the item and records its URL.
func (uc *UseCase) AttachImage(ctx context.Context, identity domain.Identity, id, filename string, r io.Reader) (*domain.FoodItem, error) {
	if uc.images == nil {
		return nil, domain.Unavailable("image storage not configured", nil)
	}
	item, err := uc.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	url, err := uc.images.UploadImage(ctx, identity.ID+"-"+id+"-"+filename, r)
	if err != nil {
		return nil, err
	}
	item.ImageURL = url
	if err := uc.dir.Patch(ctx, domain.FoodItemPath(identity.ID, id), map[string]interface{}{
		"imageUrl": url,
	}); err != nil {
		return nil, err
	}
	return item, nil
}

// ScanExpiry extracts an expiry date from a label photo.
func (uc *UseCase) ScanExpiry(ctx context.Context, filename string, image []byte) (string, error) {
	if uc.scanner == nil {
		return "", domain.Unavailable("expiry scanner not configured", nil)
	}
	if len(image) == 0 {
		return "", domain.Invalid("image is required")
	}
	return uc.scanner.ScanExpiry(ctx, filename, image)
}

func (uc *UseCase) shouldBuffer(ctx context.Context, operation, userID string, item *domain.FoodItem, cause error) bool {
	if uc.buffer == nil || !domain.IsDomainError(cause, domain.ErrCodeUnavailable) {
		return false
	}
	if err := uc.buffer.BufferFoodItem(ctx, operation, userID, item); err != nil {
		uc.logger.Error("failed to buffer food item operation", zap.String("operation", operation), zap.Error(err))
		return false
	}
	uc.logger.Warn("food item operation buffered", zap.String("operation", operation), zap.Error(cause))
	return true
}
