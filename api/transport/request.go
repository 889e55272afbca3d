package transport

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	TTL int `json:"ttl_seconds"`
}

type ProfileUpdateRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Contact *string `json:"contact"`
}

type FoodItemRequest struct {
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ExpiryDate   string `json:"expiryDate"`
	AlertEnabled bool   `json:"alertEnabled"`
}

type DonationRequest struct {
	ItemID string `json:"itemId"`
	NgoID  string `json:"ngoId"`
}

type RejectRequest struct {
	Pending      bool   `json:"pending"`
	Confirmation string `json:"confirmation"`
}

type RecipeRequest struct {
	Ingredients []string `json:"ingredients"`
}
