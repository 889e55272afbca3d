package domain

import "time"

// DonationStatus is the lifecycle state of a donation.
type DonationStatus string

const (
	DonationPending  DonationStatus = "Pending"
	DonationAccepted DonationStatus = "Accepted"
)

// Donation is stored under ngos/{ngoId}/donations/{id}.
type Donation struct {
	ID         string         `json:"id"`
	DonorID    string         `json:"donorId"`
	ItemID     string         `json:"itemId,omitempty"`
	ItemName   string         `json:"itemName"`
	Status     DonationStatus `json:"status"`
	CreatedAt  time.Time      `json:"createdAt"`
	AcceptedAt *time.Time     `json:"acceptedAt,omitempty"`
}

// CanTransition allows only Pending -> Accepted.
func (s DonationStatus) CanTransition(next DonationStatus) bool {
	return s == DonationPending && next == DonationAccepted
}
