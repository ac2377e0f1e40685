package recipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils"
	"foodgram-backend/internal/utils/storage"
	"foodgram-backend/pkg/ingredient"
	"foodgram-backend/pkg/tag"
	"foodgram-backend/pkg/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.RecipeSaveRequest, authorID uint) (domain.RecipeResponse, error)
		UpdateRecipe(ctx context.Context, recipeID uint, req domain.RecipeSaveRequest, userID uint) (domain.RecipeResponse, error)
		DeleteRecipe(ctx context.Context, recipeID uint, userID uint) error
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, requesterID uint) ([]domain.RecipeResponse, int64, error)
		GetRecipeDetail(ctx context.Context, recipeID uint, requesterID uint) (domain.RecipeResponse, error)

		FavoriteRecipe(ctx context.Context, userID, recipeID uint) error
		UnfavoriteRecipe(ctx context.Context, userID, recipeID uint) error
		AddToShoppingCart(ctx context.Context, userID, recipeID uint) error
		RemoveFromShoppingCart(ctx context.Context, userID, recipeID uint) error
		AggregateShoppingCart(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error)
		DownloadShoppingCart(ctx context.Context, userID uint) ([]byte, error)
	}

	recipeService struct {
		recipeRepository     RecipeRepository
		tagRepository        tag.TagRepository
		ingredientRepository ingredient.IngredientRepository
		userRepository       user.UserRepository
		s3                   storage.AwsS3
	}

	// validatedRecipe carries the resolved entities of a payload that passed
	// every structural and referential check and is safe to persist.
	validatedRecipe struct {
		tags  []*entities.Tag
		links []*entities.RecipeIngredient
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	tagRepository tag.TagRepository,
	ingredientRepository ingredient.IngredientRepository,
	userRepository user.UserRepository,
	s3 storage.AwsS3,
) RecipeService {
	return &recipeService{
		recipeRepository:     recipeRepository,
		tagRepository:        tagRepository,
		ingredientRepository: ingredientRepository,
		userRepository:       userRepository,
		s3:                   s3,
	}
}

// validatePayload checks a recipe payload against the store before any
// mutation. Checks run in a fixed order so each failure maps to one error.
// Existence checks compare resolved counts against requested counts and do
// not report which id was unknown.
func (s *recipeService) validatePayload(ctx context.Context, req domain.RecipeSaveRequest) (*validatedRecipe, error) {
	if len(req.Ingredients) == 0 || len(req.Tags) == 0 || req.Image == "" {
		return nil, domain.ErrRecipeFieldsMissing
	}

	seenTags := make(map[uint]bool, len(req.Tags))
	for _, tagID := range req.Tags {
		if seenTags[tagID] {
			return nil, domain.ErrDuplicateTag
		}
		seenTags[tagID] = true
	}

	tags, err := s.tagRepository.FindTagsByIDs(ctx, req.Tags)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(req.Tags) {
		return nil, domain.ErrUnknownTag
	}

	seenIngredients := make(map[uint]bool, len(req.Ingredients))
	ingredientIDs := make([]uint, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		if seenIngredients[item.ID] {
			return nil, domain.ErrDuplicateIngredient
		}
		seenIngredients[item.ID] = true
		ingredientIDs = append(ingredientIDs, item.ID)
	}

	for _, item := range req.Ingredients {
		if item.Amount < 1 {
			return nil, domain.ErrInvalidIngredientAmount
		}
	}

	ingredients, err := s.ingredientRepository.FindIngredientsByIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, err
	}
	if len(ingredients) != len(ingredientIDs) {
		return nil, domain.ErrUnknownIngredient
	}

	links := make([]*entities.RecipeIngredient, 0, len(req.Ingredients))
	for _, item := range req.Ingredients {
		links = append(links, &entities.RecipeIngredient{
			IngredientID: item.ID,
			Amount:       item.Amount,
		})
	}

	return &validatedRecipe{tags: tags, links: links}, nil
}

func (s *recipeService) uploadImage(ctx context.Context, image string) (string, error) {
	raw, contentType, err := utils.DecodeBase64Image(image)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("recipe-%s%s", uuid.New().String(), utils.ImageExtension(contentType))
	return s.s3.UploadBytes(ctx, key, raw, contentType, "recipes", storage.AllowImage...)
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.RecipeSaveRequest, authorID uint) (domain.RecipeResponse, error) {
	validated, err := s.validatePayload(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	imageURL, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	recipe := &entities.Recipe{
		Name:        req.Name,
		AuthorID:    authorID,
		ImageURL:    imageURL,
		CookingTime: req.CookingTime,
		Text:        req.Text,
		Tags:        validated.tags,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, validated.links); err != nil {
		return domain.RecipeResponse{}, domain.ErrRecipeWriteFailed
	}

	return s.GetRecipeDetail(ctx, recipe.ID, authorID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, recipeID uint, req domain.RecipeSaveRequest, userID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	if recipe.AuthorID != userID {
		return domain.RecipeResponse{}, domain.ErrUnauthorizedRecipeAccess
	}

	validated, err := s.validatePayload(ctx, req)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	imageURL, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return domain.RecipeResponse{}, err
	}

	updated := &entities.Recipe{
		ID:          recipe.ID,
		Name:        req.Name,
		AuthorID:    recipe.AuthorID,
		ImageURL:    imageURL,
		CookingTime: req.CookingTime,
		Text:        req.Text,
		Timestamp:   recipe.Timestamp,
	}

	if err := s.recipeRepository.UpdateRecipe(ctx, updated, validated.tags, validated.links); err != nil {
		return domain.RecipeResponse{}, domain.ErrRecipeWriteFailed
	}

	return s.GetRecipeDetail(ctx, recipe.ID, userID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, recipeID uint, userID uint) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}
	if recipe.AuthorID != userID {
		return domain.ErrUnauthorizedRecipeAccess
	}
	return s.recipeRepository.DeleteRecipe(ctx, recipeID)
}

func (s *recipeService) toRecipeResponse(ctx context.Context, recipe *entities.Recipe, requesterID uint) (domain.RecipeResponse, error) {
	isFavorited := false
	isInCart := false
	isSubscribed := false
	var err error

	if requesterID != 0 {
		isFavorited, err = s.recipeRepository.IsFavorited(ctx, requesterID, recipe.ID)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		isInCart, err = s.recipeRepository.IsInCart(ctx, requesterID, recipe.ID)
		if err != nil {
			return domain.RecipeResponse{}, err
		}
		if recipe.AuthorID != requesterID {
			isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, recipe.AuthorID)
			if err != nil {
				return domain.RecipeResponse{}, err
			}
		}
	}

	tags := make([]domain.TagResponse, 0, len(recipe.Tags))
	for _, t := range recipe.Tags {
		tags = append(tags, domain.TagResponse{
			ID:    t.ID,
			Name:  t.Name,
			Slug:  t.Slug,
			Color: t.Color,
		})
	}

	ingredients := make([]domain.RecipeIngredientResponse, 0, len(recipe.Ingredients))
	for _, link := range recipe.Ingredients {
		item := domain.RecipeIngredientResponse{
			ID:     link.IngredientID,
			Amount: link.Amount,
		}
		if link.Ingredient != nil {
			item.Name = link.Ingredient.Name
			item.MeasurementUnit = link.Ingredient.MeasurementUnit
		}
		ingredients = append(ingredients, item)
	}

	author := domain.UserResponse{}
	if recipe.Author != nil {
		author = domain.UserResponse{
			ID:           recipe.Author.ID,
			Email:        recipe.Author.Email,
			Username:     recipe.Author.Username,
			FirstName:    recipe.Author.FirstName,
			LastName:     recipe.Author.LastName,
			IsSubscribed: isSubscribed,
		}
	}

	return domain.RecipeResponse{
		ID:               recipe.ID,
		Name:             recipe.Name,
		Image:            recipe.ImageURL,
		CookingTime:      recipe.CookingTime,
		Text:             recipe.Text,
		Author:           author,
		Tags:             tags,
		Ingredients:      ingredients,
		IsFavorited:      isFavorited,
		IsInShoppingCart: isInCart,
	}, nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, requesterID uint) ([]domain.RecipeResponse, int64, error) {
	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, requesterID)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.RecipeResponse, 0, len(recipes))
	for _, recipe := range recipes {
		res, err := s.toRecipeResponse(ctx, recipe, requesterID)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, res)
	}
	return result, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, recipeID uint, requesterID uint) (domain.RecipeResponse, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeResponse{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeResponse{}, err
	}
	return s.toRecipeResponse(ctx, recipe, requesterID)
}

func (s *recipeService) FavoriteRecipe(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	favorited, err := s.recipeRepository.IsFavorited(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if favorited {
		return domain.ErrAlreadyFavorited
	}

	favorite := &entities.Favorite{UserID: userID, RecipeID: recipeID}
	if err := s.recipeRepository.CreateFavorite(ctx, favorite); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyFavorited
		}
		return err
	}
	return nil
}

func (s *recipeService) UnfavoriteRecipe(ctx context.Context, userID, recipeID uint) error {
	affected, err := s.recipeRepository.DeleteFavorite(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrFavoriteNotFound
	}
	return nil
}

func (s *recipeService) AddToShoppingCart(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.recipeRepository.GetRecipeByID(ctx, recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	inCart, err := s.recipeRepository.IsInCart(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if inCart {
		return domain.ErrAlreadyInCart
	}

	entry := &entities.ShoppingCart{UserID: userID, RecipeID: recipeID}
	if err := s.recipeRepository.AddToCart(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyInCart
		}
		return err
	}
	return nil
}

func (s *recipeService) RemoveFromShoppingCart(ctx context.Context, userID, recipeID uint) error {
	affected, err := s.recipeRepository.RemoveFromCart(ctx, userID, recipeID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrCartEntryNotFound
	}
	return nil
}

// AggregateShoppingCart sums ingredient amounts across every recipe in the
// user's cart, one row per distinct ingredient, ordered by ingredient id.
// An empty cart yields an empty list.
func (s *recipeService) AggregateShoppingCart(ctx context.Context, userID uint) ([]domain.ShoppingListItem, error) {
	links, err := s.recipeRepository.GetCartIngredients(ctx, userID)
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]*domain.ShoppingListItem, len(links))
	for _, link := range links {
		item, ok := totals[link.IngredientID]
		if !ok {
			item = &domain.ShoppingListItem{IngredientID: link.IngredientID}
			if link.Ingredient != nil {
				item.Name = link.Ingredient.Name
				item.MeasurementUnit = link.Ingredient.MeasurementUnit
			}
			totals[link.IngredientID] = item
		}
		item.Amount += link.Amount
	}

	result := make([]domain.ShoppingListItem, 0, len(totals))
	for _, item := range totals {
		result = append(result, *item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].IngredientID < result[j].IngredientID
	})
	return result, nil
}

// DownloadShoppingCart renders the aggregated shopping list as a plain-text
// attachment body.
func (s *recipeService) DownloadShoppingCart(ctx context.Context, userID uint) ([]byte, error) {
	items, err := s.AggregateShoppingCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("Shopping list\n\n")
	for _, item := range items {
		fmt.Fprintf(&buf, "- %s (%s): %d\n", item.Name, item.MeasurementUnit, item.Amount)
	}
	return buf.Bytes(), nil
}
