package domain

import (
	"strings"
	"time"
)

// DateLayout is the storage format of expiry dates.
const DateLayout = "2006-01-02"

// Expiry thresholds in whole days.
const ExpiringSoonDays = 7

// Food item status values.
const (
	ItemStatusAvailable  = "Available"
	ItemStatusInProgress = "In Progress"
)

// FoodItem is a single inventory entry under users/{uid}/foodItems/{id}.
type FoodItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	ExpiryDate   string    `json:"expiryDate"`
	Status       string    `json:"status,omitempty"`
	AlertEnabled bool      `json:"alertEnabled"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Expiry parses the stored expiry date.
func (f *FoodItem) Expiry() (time.Time, error) {
	if f == nil {
		return time.Time{}, ErrFoodItemNotFound
	}
	return ParseDate(f.ExpiryDate)
}

func (f *FoodItem) InDonation() bool {
	return f != nil && f.Status == ItemStatusInProgress
}

// Validate checks the fields required to store an item.
func (f *FoodItem) Validate() error {
	if f == nil {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(f.Name) == "" {
		return Invalid("name is required")
	}
	if f.Quantity <= 0 {
		return Invalid("quantity must be positive")
	}
	if f.ExpiryDate == "" {
		return Invalid("expiryDate is required")
	}
	date, err := ParseDate(f.ExpiryDate)
	if err != nil {
		return Invalid("expiryDate %q is not a date", f.ExpiryDate)
	}
	f.ExpiryDate = date.Format(DateLayout)
	return nil
}

// ParseDate accepts ISO dates, the slash form written by older clients and RFC3339 timestamps.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range []string{DateLayout, "2006/01/02", time.RFC3339} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ExpiryStatus classifies an item against the current day.
type ExpiryStatus string

const (
	ExpiryFresh        ExpiryStatus = "Fresh"
	ExpiryExpiringSoon ExpiryStatus = "Expiring Soon"
	ExpiryExpired      ExpiryStatus = "Expired"
)

// DaysUntil counts calendar days from now's date to expiry's date.
func DaysUntil(expiry, now time.Time) int {
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(n).Hours() / 24)
}

// ClassifyExpiry: Expired below zero days, ExpiringSoon from 0 to 7 inclusive, Fresh beyond.
func ClassifyExpiry(expiry, now time.Time) ExpiryStatus {
	days := DaysUntil(expiry, now)
	switch {
	case days < 0:
		return ExpiryExpired
	case days <= ExpiringSoonDays:
		return ExpiryExpiringSoon
	default:
		return ExpiryFresh
	}
}
