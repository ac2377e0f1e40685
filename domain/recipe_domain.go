package domain

import (
	"errors"
)

var (
	MessageSuccessGetRecipes          = "success get recipes"
	MessageSuccessGetRecipeDetail     = "success get recipe detail"
	MessageSuccessCreateRecipe        = "recipe created successfully"
	MessageSuccessUpdateRecipe        = "recipe updated successfully"
	MessageSuccessDeleteRecipe        = "recipe deleted successfully"
	MessageSuccessFavoriteRecipe      = "recipe added to favorites"
	MessageSuccessUnfavoriteRecipe    = "recipe removed from favorites"
	MessageSuccessAddToShoppingCart   = "recipe added to shopping cart"
	MessageSuccessRemoveShoppingCart  = "recipe removed from shopping cart"
	MessageSuccessGetShoppingCart     = "success get shopping cart"

	MessageFailedGetRecipes          = "failed to get recipes"
	MessageFailedGetRecipeDetail     = "failed to get recipe detail"
	MessageFailedCreateRecipe        = "failed to create recipe"
	MessageFailedUpdateRecipe        = "failed to update recipe"
	MessageFailedDeleteRecipe        = "failed to delete recipe"
	MessageFailedFavoriteRecipe      = "failed to add recipe to favorites"
	MessageFailedUnfavoriteRecipe    = "failed to remove recipe from favorites"
	MessageFailedAddToShoppingCart   = "failed to add recipe to shopping cart"
	MessageFailedRemoveShoppingCart  = "failed to remove recipe from shopping cart"
	MessageFailedGetShoppingCart     = "failed to get shopping cart"

	ErrRecipeNotFound           = errors.New("recipe not found")
	ErrUnauthorizedRecipeAccess = errors.New("unauthorized access to recipe")

	ErrRecipeFieldsMissing     = errors.New("ingredients, tags and image are required")
	ErrDuplicateTag            = errors.New("tags cannot repeat")
	ErrUnknownTag              = errors.New("unknown tag in request")
	ErrDuplicateIngredient     = errors.New("ingredients cannot repeat")
	ErrInvalidIngredientAmount = errors.New("ingredient amount must be at least 1")
	ErrUnknownIngredient       = errors.New("unknown ingredient in request")
	ErrRecipeWriteFailed       = errors.New("failed to write recipe")

	ErrAlreadyFavorited  = errors.New("recipe already in favorites")
	ErrFavoriteNotFound  = errors.New("recipe is not in favorites")
	ErrAlreadyInCart     = errors.New("recipe already in shopping cart")
	ErrCartEntryNotFound = errors.New("recipe is not in shopping cart")
)

type (
	// RecipeIngredientRequest carries no validate tags: the ingredient id
	// and amount are checked by the service validation pipeline so each
	// failure maps to its own error kind instead of a generic one.
	RecipeIngredientRequest struct {
		ID     uint `json:"id"`
		Amount int  `json:"amount"`
	}

	// RecipeSaveRequest covers both create and update. Presence of
	// ingredients, tags and image is enforced by the service validation
	// pipeline, not by struct tags, so each absence maps to its own error.
	RecipeSaveRequest struct {
		Name        string                    `json:"name" validate:"required,max=200"`
		Image       string                    `json:"image"`
		CookingTime int                       `json:"cooking_time" validate:"required,min=1"`
		Text        string                    `json:"text" validate:"required"`
		Ingredients []RecipeIngredientRequest `json:"ingredients"`
		Tags        []uint                    `json:"tags"`
	}

	RecipeIngredientResponse struct {
		ID              uint   `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}

	RecipeResponse struct {
		ID               uint                       `json:"id"`
		Name             string                     `json:"name"`
		Image            string                     `json:"image"`
		CookingTime      int                        `json:"cooking_time"`
		Text             string                     `json:"text"`
		Author           UserResponse               `json:"author"`
		Tags             []TagResponse              `json:"tags"`
		Ingredients      []RecipeIngredientResponse `json:"ingredients"`
		IsFavorited      bool                       `json:"is_favorited"`
		IsInShoppingCart bool                       `json:"is_in_shopping_cart"`
	}

	RecipeBaseResponse struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}

	RecipeFilter struct {
		AuthorID         uint
		TagSlugs         []string
		IsFavorited      bool
		IsInShoppingCart bool
		Page             int
		Limit            int
	}

	ShoppingListItem struct {
		IngredientID    uint   `json:"ingredient_id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
		Amount          int    `json:"amount"`
	}
)
