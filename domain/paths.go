package domain

// Top-level collections of the profile directory.
const (
	CollectionUsers       = "users"
	CollectionPendingNgos = "pendingNgos"
	CollectionNgos        = "ngos"
	CollectionAdmins      = "admins"

	subFoodItems = "foodItems"
	subDonations = "donations"
)

func UserPath(id string) string       { return JoinPath(CollectionUsers, id) }
func PendingNgoPath(id string) string { return JoinPath(CollectionPendingNgos, id) }
func NgoPath(id string) string        { return JoinPath(CollectionNgos, id) }
func AdminPath(id string) string      { return JoinPath(CollectionAdmins, id) }

// FoodItemsPath is the collection holding a user's inventory.
func FoodItemsPath(userID string) string { return JoinPath(CollectionUsers, userID, subFoodItems) }

func FoodItemPath(userID, itemID string) string { return JoinPath(FoodItemsPath(userID), itemID) }

// DonationsPath is the collection of donations received by an approved NGO.
func DonationsPath(ngoID string) string { return JoinPath(CollectionNgos, ngoID, subDonations) }

func DonationPath(ngoID, donationID string) string {
	return JoinPath(DonationsPath(ngoID), donationID)
}
