package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestClassifyExpiry(t *testing.T) {
	today := date(t, "2024-01-10")

	cases := []struct {
		expiry string
		want   ExpiryStatus
		days   int
	}{
		{"2024-01-15", ExpiryExpiringSoon, 5},
		{"2024-01-05", ExpiryExpired, -5},
		{"2024-02-01", ExpiryFresh, 22},
		{"2024-01-10", ExpiryExpiringSoon, 0},
		{"2024-01-17", ExpiryExpiringSoon, 7},
		{"2024-01-18", ExpiryFresh, 8},
		{"2024-01-09", ExpiryExpired, -1},
	}

	for _, tc := range cases {
		t.Run(tc.expiry, func(t *testing.T) {
			expiry := date(t, tc.expiry)
			assert.Equal(t, tc.days, DaysUntil(expiry, today))
			assert.Equal(t, tc.want, ClassifyExpiry(expiry, today))
		})
	}
}

func TestClassifyExpiryIgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2024, 1, 10, 23, 59, 0, 0, time.UTC)
	expiry := date(t, "2024-01-10")
	assert.Equal(t, ExpiryExpiringSoon, ClassifyExpiry(expiry, now))
}

func TestParseDateLayouts(t *testing.T) {
	for _, in := range []string{"2024-03-09", "2024/03/09", "2024-03-09T10:00:00Z"} {
		d, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, "2024-03-09", d.Format(DateLayout))
	}
	_, err := ParseDate("next week")
	assert.Error(t, err)
}

func TestFoodItemValidate(t *testing.T) {
	item := &FoodItem{Name: "Milk", Quantity: 1, ExpiryDate: "2024/01/13"}
	require.NoError(t, item.Validate())
	assert.Equal(t, "2024-01-13", item.ExpiryDate)

	assert.True(t, IsDomainError((&FoodItem{Quantity: 1, ExpiryDate: "2024-01-01"}).Validate(), ErrCodeInvalid))
	assert.True(t, IsDomainError((&FoodItem{Name: "Eggs", ExpiryDate: "2024-01-01"}).Validate(), ErrCodeInvalid))
	assert.True(t, IsDomainError((&FoodItem{Name: "Eggs", Quantity: 2}).Validate(), ErrCodeInvalid))
}

func TestDonationTransitions(t *testing.T) {
	assert.True(t, DonationPending.CanTransition(DonationAccepted))
	assert.False(t, DonationAccepted.CanTransition(DonationPending))
	assert.False(t, DonationAccepted.CanTransition(DonationAccepted))
	assert.False(t, DonationPending.CanTransition(DonationPending))
}
