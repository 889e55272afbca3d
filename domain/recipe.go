package domain

// Recipe is one suggestion for a set of ingredients.
type Recipe struct {
	ID                    int                `json:"id"`
	Title                 string             `json:"title"`
	Image                 string             `json:"image,omitempty"`
	UsedIngredientCount   int                `json:"usedIngredientCount"`
	MissedIngredientCount int                `json:"missedIngredientCount"`
	UsedIngredients       []RecipeIngredient `json:"usedIngredients,omitempty"`
	MissedIngredients     []RecipeIngredient `json:"missedIngredients,omitempty"`
	SourceURL             string             `json:"sourceUrl,omitempty"`
}

type RecipeIngredient struct {
	Name string `json:"name"`
}
