package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fastygo/greenbite/domain"
)

// Dashboard sort orders.
const (
	SortExpiryDate    = "expiryDate"
	SortName          = "name"
	SortQuantity      = "quantity"
	SortRecentlyAdded = "recentlyAdded"
)

type AlertLevel string

const (
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
)

type Alert struct {
	ItemID  string     `json:"itemId"`
	Message string     `json:"message"`
	Level   AlertLevel `json:"type"`
}

type ClassifiedItem struct {
	domain.FoodItem
	Classification domain.ExpiryStatus `json:"classification"`
	DaysLeft       int                 `json:"daysLeft"`
}

type Dashboard struct {
	TotalItems   int              `json:"totalItems"`
	ExpiringSoon int              `json:"expiringSoon"`
	Expired      int              `json:"expired"`
	Fresh        int              `json:"fresh"`
	Alerts       []Alert          `json:"alerts"`
	Items        []ClassifiedItem `json:"items"`
}

// Dashboard classifies every item against now's calendar day and builds the
// summary counts and alerts.
func (uc *UseCase) Dashboard(ctx context.Context, identity domain.Identity, now time.Time, sortBy string) (*Dashboard, error) {
	items, err := uc.List(ctx, identity)
	if err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = uc.now()
	}
	return Summarize(items, now, sortBy), nil
}

// Summarize is the pure part of Dashboard.
func Summarize(items []domain.FoodItem, now time.Time, sortBy string) *Dashboard {
	d := &Dashboard{
		TotalItems: len(items),
		Alerts:     []Alert{},
		Items:      make([]ClassifiedItem, 0, len(items)),
	}

	for _, item := range items {
		ci := ClassifiedItem{FoodItem: item, Classification: domain.ExpiryFresh}
		expiry, err := item.Expiry()
		if err == nil {
			ci.DaysLeft = domain.DaysUntil(expiry, now)
			ci.Classification = domain.ClassifyExpiry(expiry, now)
		}

		switch ci.Classification {
		case domain.ExpiryExpired:
			d.Expired++
			d.Alerts = append(d.Alerts, Alert{
				ItemID:  item.ID,
				Message: fmt.Sprintf("%s has expired!", item.Name),
				Level:   AlertError,
			})
		case domain.ExpiryExpiringSoon:
			d.ExpiringSoon++
			d.Alerts = append(d.Alerts, Alert{
				ItemID:  item.ID,
				Message: fmt.Sprintf("%s is expiring in %d days!", item.Name, ci.DaysLeft),
				Level:   AlertWarning,
			})
		default:
			d.Fresh++
		}
		d.Items = append(d.Items, ci)
	}

	sortItems(d.Items, sortBy)
	return d
}

func sortItems(items []ClassifiedItem, sortBy string) {
	var less func(a, b ClassifiedItem) bool
	switch sortBy {
	case SortName:
		less = func(a, b ClassifiedItem) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortQuantity:
		less = func(a, b ClassifiedItem) bool { return a.Quantity > b.Quantity }
	case SortRecentlyAdded:
		less = func(a, b ClassifiedItem) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		less = func(a, b ClassifiedItem) bool { return a.ExpiryDate < b.ExpiryDate }
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
