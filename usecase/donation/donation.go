package donation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
	"github.com/fastygo/greenbite/usecase"
)

type UseCase struct {
	dir     repository.Directory
	feed    repository.ChangeFeed
	metrics usecase.WorkflowMetrics
	logger  *zap.Logger
	now     func() time.Time
}

func New(dir repository.Directory, feed repository.ChangeFeed, metrics usecase.WorkflowMetrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	return &UseCase{
		dir:     dir,
		feed:    feed,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Created is the outcome of Create. ItemUpdated is false when the donation was
// stored but the food item could not be marked "In Progress".
type Created struct {
	Donation    domain.Donation `json:"donation"`
	NgoID       string          `json:"ngoId"`
	ItemUpdated bool            `json:"itemUpdated"`
	Warning     string          `json:"warning,omitempty"`
}

// Create offers one of the donor's items to an approved NGO. The donation and
// the item status are two separate writes; the second is not rolled back.
func (uc *UseCase) Create(ctx context.Context, donor domain.Identity, itemID, ngoID string) (*Created, error) {
	if donor.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	if itemID == "" || ngoID == "" {
		return nil, domain.Invalid("itemId and ngoId are required")
	}

	item, err := uc.item(ctx, donor.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item.InDonation() {
		return nil, domain.ErrItemInProgress
	}
	if err := uc.requireApprovedNgo(ctx, ngoID); err != nil {
		return nil, err
	}

	donation := domain.Donation{
		ID:        uuid.NewString(),
		DonorID:   donor.ID,
		ItemID:    itemID,
		ItemName:  item.Name,
		Status:    domain.DonationPending,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.dir.Set(ctx, domain.DonationPath(ngoID, donation.ID), donation); err != nil {
		return nil, err
	}
	uc.metrics.Donation("created")

	created := &Created{Donation: donation, NgoID: ngoID, ItemUpdated: true}
	if err := uc.dir.Patch(ctx, domain.FoodItemPath(donor.ID, itemID), map[string]interface{}{
		"status": domain.ItemStatusInProgress,
	}); err != nil {
		uc.logger.Warn("donation stored but item status not updated",
			zap.String("donation_id", donation.ID),
			zap.String("item_id", itemID),
			zap.Error(err))
		uc.metrics.Donation("item_update_failed")
		created.ItemUpdated = false
		created.Warning = "donation created but item status could not be updated"
	}
	return created, nil
}

// Accept moves a donation from Pending to Accepted. Accepting twice is a conflict.
func (uc *UseCase) Accept(ctx context.Context, actor domain.Profile, donationID string) (*domain.Donation, error) {
	ngoID, err := approvedNgoID(actor)
	if err != nil {
		return nil, err
	}

	var accepted domain.Donation
	path := domain.DonationPath(ngoID, donationID)
	err = uc.dir.RunTx(ctx, func(tx repository.Tx) error {
		doc, err := tx.Get(ctx, path)
		if err != nil {
			if errors.Is(err, domain.ErrDocumentNotFound) {
				return domain.ErrDonationNotFound
			}
			return err
		}
		if err := doc.Decode(&accepted); err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "decode donation", err)
		}
		if accepted.Status == domain.DonationAccepted {
			return domain.ErrAlreadyAccepted
		}
		if !accepted.Status.CanTransition(domain.DonationAccepted) {
			return domain.NewError(domain.ErrCodeConflict, "donation cannot be accepted from status "+string(accepted.Status))
		}

		at := uc.now().UTC()
		accepted.ID = donationID
		accepted.Status = domain.DonationAccepted
		accepted.AcceptedAt = &at
		return tx.Patch(ctx, path, map[string]interface{}{
			"status":     domain.DonationAccepted,
			"acceptedAt": at,
		})
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.Donation("accepted")
	return &accepted, nil
}

// ListForNGO returns the NGO's donations, newest first.
func (uc *UseCase) ListForNGO(ctx context.Context, actor domain.Profile) ([]domain.Donation, error) {
	ngoID, err := approvedNgoID(actor)
	if err != nil {
		return nil, err
	}
	docs, err := uc.dir.List(ctx, domain.DonationsPath(ngoID))
	if err != nil {
		return nil, err
	}
	donations := make([]domain.Donation, 0, len(docs))
	for i := range docs {
		var d domain.Donation
		if err := docs[i].Decode(&d); err != nil {
			uc.logger.Warn("skipping malformed donation", zap.String("path", docs[i].Path), zap.Error(err))
			continue
		}
		d.ID = docs[i].ID()
		donations = append(donations, d)
	}
	sort.SliceStable(donations, func(i, j int) bool {
		return donations[i].CreatedAt.After(donations[j].CreatedAt)
	})
	return donations, nil
}

// Subscribe streams changes to the NGO's donations until ctx ends.
func (uc *UseCase) Subscribe(ctx context.Context, actor domain.Profile) (repository.Subscription, error) {
	ngoID, err := approvedNgoID(actor)
	if err != nil {
		return nil, err
	}
	if uc.feed == nil {
		return nil, domain.Unavailable("change feed not configured", nil)
	}
	return uc.feed.Subscribe(ctx, domain.DonationsPath(ngoID))
}

// Watch subscribes to the NGO's donations and then reads the current list,
// so a write landing between the two shows up on the subscription.
// The caller owns the subscription; it ends with ctx or Close.
func (uc *UseCase) Watch(ctx context.Context, actor domain.Profile) ([]domain.Donation, repository.Subscription, error) {
	sub, err := uc.Subscribe(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := uc.ListForNGO(ctx, actor)
	if err != nil {
		_ = sub.Close()
		return nil, nil, err
	}
	return snapshot, sub, nil
}

// ListApprovedNgos returns the NGOs a donor may give to.
func (uc *UseCase) ListApprovedNgos(ctx context.Context) ([]domain.NgoProfile, error) {
	docs, err := uc.dir.List(ctx, domain.CollectionNgos)
	if err != nil {
		return nil, err
	}
	ngos := make([]domain.NgoProfile, 0, len(docs))
	for i := range docs {
		var ngo domain.NgoProfile
		if err := docs[i].Decode(&ngo); err != nil || !ngo.Approved {
			continue
		}
		ngo.ID = docs[i].ID()
		ngos = append(ngos, ngo)
	}
	return ngos, nil
}

// ListDonatable returns the donor's items that are not already part of a donation.
func (uc *UseCase) ListDonatable(ctx context.Context, donor domain.Identity) ([]domain.FoodItem, error) {
	if donor.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	docs, err := uc.dir.List(ctx, domain.FoodItemsPath(donor.ID))
	if err != nil {
		return nil, err
	}
	items := make([]domain.FoodItem, 0, len(docs))
	for i := range docs {
		var item domain.FoodItem
		if err := docs[i].Decode(&item); err != nil || item.InDonation() {
			continue
		}
		item.ID = docs[i].ID()
		items = append(items, item)
	}
	return items, nil
}

func (uc *UseCase) item(ctx context.Context, userID, itemID string) (*domain.FoodItem, error) {
	doc, err := uc.dir.Get(ctx, domain.FoodItemPath(userID, itemID))
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
	item.ID = itemID
	return &item, nil
}

func (uc *UseCase) requireApprovedNgo(ctx context.Context, ngoID string) error {
	doc, err := uc.dir.Get(ctx, domain.NgoPath(ngoID))
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.ErrNgoNotFound
		}
		return err
	}
	var ngo domain.NgoProfile
	if err := doc.Decode(&ngo); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "decode ngo", err)
	}
	if !ngo.Approved {
		return domain.ErrNgoNotApproved
	}
	return nil
}

func approvedNgoID(actor domain.Profile) (string, error) {
	if actor.Kind != domain.KindApprovedNgo || actor.Ngo == nil || actor.Ngo.ID == "" {
		return "", domain.ErrForbidden
	}
	return actor.Ngo.ID, nil
}
