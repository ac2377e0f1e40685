package recipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"testing"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type pair struct {
	userID   uint
	recipeID uint
}

type fakeRecipeRepo struct {
	mu        sync.Mutex
	recipes   map[uint]*entities.Recipe
	links     map[uint][]*entities.RecipeIngredient
	favorites map[pair]bool
	cart      map[pair]bool
	nextID    uint

	ingredients map[uint]*entities.Ingredient
	failWrites  bool
}

func newFakeRecipeRepo(ingredients map[uint]*entities.Ingredient) *fakeRecipeRepo {
	return &fakeRecipeRepo{
		recipes:     make(map[uint]*entities.Recipe),
		links:       make(map[uint][]*entities.RecipeIngredient),
		favorites:   make(map[pair]bool),
		cart:        make(map[pair]bool),
		nextID:      1,
		ingredients: ingredients,
	}
}

func (r *fakeRecipeRepo) CreateRecipe(_ context.Context, recipe *entities.Recipe, links []*entities.RecipeIngredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return errors.New("connection refused")
	}
	recipe.ID = r.nextID
	r.nextID++

	stored := *recipe
	r.recipes[recipe.ID] = &stored
	for _, link := range links {
		link.RecipeID = recipe.ID
		r.links[recipe.ID] = append(r.links[recipe.ID], link)
	}
	return nil
}

func (r *fakeRecipeRepo) UpdateRecipe(_ context.Context, recipe *entities.Recipe, tags []*entities.Tag, links []*entities.RecipeIngredient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWrites {
		return errors.New("connection refused")
	}
	stored := *recipe
	stored.Tags = tags
	r.recipes[recipe.ID] = &stored

	r.links[recipe.ID] = nil
	for _, link := range links {
		link.RecipeID = recipe.ID
		r.links[recipe.ID] = append(r.links[recipe.ID], link)
	}
	return nil
}

func (r *fakeRecipeRepo) recipeByID(id uint) (*entities.Recipe, error) {
	stored, ok := r.recipes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	recipe := *stored
	recipe.Ingredients = nil
	for _, link := range r.links[id] {
		attached := *link
		attached.Ingredient = r.ingredients[link.IngredientID]
		recipe.Ingredients = append(recipe.Ingredients, &attached)
	}
	return &recipe, nil
}

func (r *fakeRecipeRepo) GetRecipeByID(_ context.Context, id uint) (*entities.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recipeByID(id)
}

func (r *fakeRecipeRepo) GetRecipes(_ context.Context, filter domain.RecipeFilter, _ uint) ([]*entities.Recipe, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var recipes []*entities.Recipe
	for id := range r.recipes {
		recipe, _ := r.recipeByID(id)
		if filter.AuthorID != 0 && recipe.AuthorID != filter.AuthorID {
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes, int64(len(recipes)), nil
}

func (r *fakeRecipeRepo) DeleteRecipe(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.recipes, id)
	delete(r.links, id)
	return nil
}

func (r *fakeRecipeRepo) CreateFavorite(_ context.Context, favorite *entities.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair{favorite.UserID, favorite.RecipeID}
	if r.favorites[key] {
		return gorm.ErrDuplicatedKey
	}
	r.favorites[key] = true
	return nil
}

func (r *fakeRecipeRepo) DeleteFavorite(_ context.Context, userID, recipeID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair{userID, recipeID}
	if !r.favorites[key] {
		return 0, nil
	}
	delete(r.favorites, key)
	return 1, nil
}

func (r *fakeRecipeRepo) IsFavorited(_ context.Context, userID, recipeID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.favorites[pair{userID, recipeID}], nil
}

func (r *fakeRecipeRepo) AddToCart(_ context.Context, entry *entities.ShoppingCart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair{entry.UserID, entry.RecipeID}
	if r.cart[key] {
		return gorm.ErrDuplicatedKey
	}
	r.cart[key] = true
	return nil
}

func (r *fakeRecipeRepo) RemoveFromCart(_ context.Context, userID, recipeID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair{userID, recipeID}
	if !r.cart[key] {
		return 0, nil
	}
	delete(r.cart, key)
	return 1, nil
}

func (r *fakeRecipeRepo) IsInCart(_ context.Context, userID, recipeID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cart[pair{userID, recipeID}], nil
}

func (r *fakeRecipeRepo) GetCartIngredients(_ context.Context, userID uint) ([]*entities.RecipeIngredient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*entities.RecipeIngredient
	for key := range r.cart {
		if key.userID != userID {
			continue
		}
		for _, link := range r.links[key.recipeID] {
			attached := *link
			attached.Ingredient = r.ingredients[link.IngredientID]
			result = append(result, &attached)
		}
	}
	return result, nil
}

type fakeTagRepo struct {
	tags map[uint]*entities.Tag
}

func (r *fakeTagRepo) CreateTag(_ context.Context, tag *entities.Tag) error {
	r.tags[tag.ID] = tag
	return nil
}

func (r *fakeTagRepo) GetTags(_ context.Context) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	for _, tag := range r.tags {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *fakeTagRepo) GetTagByID(_ context.Context, id uint) (*entities.Tag, error) {
	tag, ok := r.tags[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return tag, nil
}

func (r *fakeTagRepo) FindTagsByIDs(_ context.Context, ids []uint) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	for _, id := range ids {
		if tag, ok := r.tags[id]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

type fakeIngredientRepo struct {
	ingredients map[uint]*entities.Ingredient
}

func (r *fakeIngredientRepo) CreateIngredient(_ context.Context, ingredient *entities.Ingredient) error {
	r.ingredients[ingredient.ID] = ingredient
	return nil
}

func (r *fakeIngredientRepo) GetIngredients(_ context.Context, _ string) ([]*entities.Ingredient, error) {
	var ingredients []*entities.Ingredient
	for _, ingredient := range r.ingredients {
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, nil
}

func (r *fakeIngredientRepo) GetIngredientByID(_ context.Context, id uint) (*entities.Ingredient, error) {
	ingredient, ok := r.ingredients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return ingredient, nil
}

func (r *fakeIngredientRepo) FindIngredientsByIDs(_ context.Context, ids []uint) ([]*entities.Ingredient, error) {
	var ingredients []*entities.Ingredient
	for _, id := range ids {
		if ingredient, ok := r.ingredients[id]; ok {
			ingredients = append(ingredients, ingredient)
		}
	}
	return ingredients, nil
}

type fakeUserRepo struct {
	subscriptions map[pair]bool
}

func (r *fakeUserRepo) CreateUser(_ context.Context, _ *entities.User) error { return nil }
func (r *fakeUserRepo) GetUserByID(_ context.Context, _ uint) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetUserByEmail(_ context.Context, _ string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetUserByUsername(_ context.Context, _ string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) GetUsers(_ context.Context, _, _ int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}
func (r *fakeUserRepo) UpdatePassword(_ context.Context, _ uint, _ string) error { return nil }
func (r *fakeUserRepo) CreateSubscription(_ context.Context, s *entities.Subscription) error {
	r.subscriptions[pair{s.UserID, s.AuthorID}] = true
	return nil
}
func (r *fakeUserRepo) DeleteSubscription(_ context.Context, userID, authorID uint) (int64, error) {
	key := pair{userID, authorID}
	if !r.subscriptions[key] {
		return 0, nil
	}
	delete(r.subscriptions, key)
	return 1, nil
}
func (r *fakeUserRepo) IsSubscribed(_ context.Context, userID, authorID uint) (bool, error) {
	return r.subscriptions[pair{userID, authorID}], nil
}
func (r *fakeUserRepo) GetSubscribedAuthors(_ context.Context, _ uint, _, _ int) ([]*entities.User, int64, error) {
	return nil, 0, nil
}

type fakeStorage struct {
	mu      sync.Mutex
	uploads int
}

func (s *fakeStorage) UploadBytes(_ context.Context, key string, _ []byte, _ string, folder string, _ ...string) (string, error) {
	s.mu.Lock()
	s.uploads++
	s.mu.Unlock()
	return fmt.Sprintf("https://cdn.example.test/%s/%s", folder, key), nil
}

type testEnv struct {
	service    RecipeService
	recipeRepo *fakeRecipeRepo
	storage    *fakeStorage
}

func newTestEnv() *testEnv {
	ingredients := map[uint]*entities.Ingredient{
		1: {ID: 1, Name: "flour", MeasurementUnit: "g"},
		2: {ID: 2, Name: "milk", MeasurementUnit: "ml"},
		3: {ID: 3, Name: "sugar", MeasurementUnit: "g"},
	}
	tags := map[uint]*entities.Tag{
		1: {ID: 1, Name: "breakfast", Slug: "breakfast", Color: "#E26C2D"},
		2: {ID: 2, Name: "dinner", Slug: "dinner", Color: "#49B64E"},
	}

	recipeRepo := newFakeRecipeRepo(ingredients)
	storage := &fakeStorage{}
	service := NewRecipeService(
		recipeRepo,
		&fakeTagRepo{tags: tags},
		&fakeIngredientRepo{ingredients: ingredients},
		&fakeUserRepo{subscriptions: make(map[pair]bool)},
		storage,
	)
	return &testEnv{service: service, recipeRepo: recipeRepo, storage: storage}
}

func testImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png bytes"))
}

func validSaveRequest() domain.RecipeSaveRequest {
	return domain.RecipeSaveRequest{
		Name:        "Pancakes",
		Image:       testImage(),
		CookingTime: 15,
		Text:        "Mix and fry.",
		Ingredients: []domain.RecipeIngredientRequest{
			{ID: 1, Amount: 2},
			{ID: 2, Amount: 3},
		},
		Tags: []uint{1},
	}
}

func TestValidateRecipePayload(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*domain.RecipeSaveRequest)
		wantErr error
	}{
		{
			name:    "no ingredients",
			mutate:  func(req *domain.RecipeSaveRequest) { req.Ingredients = nil },
			wantErr: domain.ErrRecipeFieldsMissing,
		},
		{
			name:    "no tags",
			mutate:  func(req *domain.RecipeSaveRequest) { req.Tags = nil },
			wantErr: domain.ErrRecipeFieldsMissing,
		},
		{
			name:    "no image",
			mutate:  func(req *domain.RecipeSaveRequest) { req.Image = "" },
			wantErr: domain.ErrRecipeFieldsMissing,
		},
		{
			name:    "duplicate tag",
			mutate:  func(req *domain.RecipeSaveRequest) { req.Tags = []uint{1, 1} },
			wantErr: domain.ErrDuplicateTag,
		},
		{
			name:    "unknown tag",
			mutate:  func(req *domain.RecipeSaveRequest) { req.Tags = []uint{1, 99} },
			wantErr: domain.ErrUnknownTag,
		},
		{
			name: "duplicate ingredient",
			mutate: func(req *domain.RecipeSaveRequest) {
				req.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 2}, {ID: 1, Amount: 3}}
			},
			wantErr: domain.ErrDuplicateIngredient,
		},
		{
			name: "zero amount",
			mutate: func(req *domain.RecipeSaveRequest) {
				req.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 0}}
			},
			wantErr: domain.ErrInvalidIngredientAmount,
		},
		{
			name: "negative amount",
			mutate: func(req *domain.RecipeSaveRequest) {
				req.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: -5}}
			},
			wantErr: domain.ErrInvalidIngredientAmount,
		},
		{
			name: "unknown ingredient",
			mutate: func(req *domain.RecipeSaveRequest) {
				req.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 2}, {ID: 99, Amount: 1}}
			},
			wantErr: domain.ErrUnknownIngredient,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			req := validSaveRequest()
			tc.mutate(&req)

			_, err := env.service.CreateRecipe(context.Background(), req, 7)
			require.ErrorIs(t, err, tc.wantErr)

			// validation errors happen before any mutation
			assert.Empty(t, env.recipeRepo.recipes)
			assert.Zero(t, env.storage.uploads)
		})
	}
}

func TestCreateRecipeRoundTrip(t *testing.T) {
	env := newTestEnv()

	res, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.NoError(t, err)

	assert.Equal(t, "Pancakes", res.Name)
	assert.Equal(t, 15, res.CookingTime)
	assert.NotEmpty(t, res.Image)

	require.Len(t, res.Tags, 1)
	assert.Equal(t, uint(1), res.Tags[0].ID)

	require.Len(t, res.Ingredients, 2)
	assert.Equal(t, uint(1), res.Ingredients[0].ID)
	assert.Equal(t, 2, res.Ingredients[0].Amount)
	assert.Equal(t, "flour", res.Ingredients[0].Name)
	assert.Equal(t, "g", res.Ingredients[0].MeasurementUnit)
	assert.Equal(t, uint(2), res.Ingredients[1].ID)
	assert.Equal(t, 3, res.Ingredients[1].Amount)
}

func TestConcurrentCreateRecipes(t *testing.T) {
	env := newTestEnv()

	first := validSaveRequest()
	first.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 2}, {ID: 2, Amount: 3}}
	second := validSaveRequest()
	second.Name = "Omelette"
	second.Ingredients = []domain.RecipeIngredientRequest{{ID: 3, Amount: 5}}

	var (
		wg      sync.WaitGroup
		results [2]domain.RecipeResponse
		errs    [2]error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = env.service.CreateRecipe(context.Background(), first, 7)
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = env.service.CreateRecipe(context.Background(), second, 8)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotEqual(t, results[0].ID, results[1].ID)

	// each recipe ends with exactly its own links, never the other author's
	assert.Equal(t, uint(7), env.recipeRepo.recipes[results[0].ID].AuthorID)
	firstLinks := env.recipeRepo.links[results[0].ID]
	require.Len(t, firstLinks, 2)
	assert.Equal(t, uint(1), firstLinks[0].IngredientID)
	assert.Equal(t, 2, firstLinks[0].Amount)
	assert.Equal(t, uint(2), firstLinks[1].IngredientID)
	assert.Equal(t, 3, firstLinks[1].Amount)

	assert.Equal(t, uint(8), env.recipeRepo.recipes[results[1].ID].AuthorID)
	secondLinks := env.recipeRepo.links[results[1].ID]
	require.Len(t, secondLinks, 1)
	assert.Equal(t, uint(3), secondLinks[0].IngredientID)
	assert.Equal(t, 5, secondLinks[0].Amount)

	for _, link := range firstLinks {
		assert.Equal(t, results[0].ID, link.RecipeID)
	}
	for _, link := range secondLinks {
		assert.Equal(t, results[1].ID, link.RecipeID)
	}
}

func TestZeroAmountErrorComesFromPipeline(t *testing.T) {
	utils.InitValidator()

	req := validSaveRequest()
	req.Ingredients[0].Amount = 0

	// struct validation lets the payload through so the pipeline can
	// report the distinct amount error
	require.NoError(t, utils.Validate.Struct(req))

	env := newTestEnv()
	_, err := env.service.CreateRecipe(context.Background(), req, 7)
	require.ErrorIs(t, err, domain.ErrInvalidIngredientAmount)
}

func TestUpdateRecipeReplacesLinks(t *testing.T) {
	env := newTestEnv()

	created, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.NoError(t, err)

	update := validSaveRequest()
	update.Ingredients = []domain.RecipeIngredientRequest{{ID: 3, Amount: 5}}

	res, err := env.service.UpdateRecipe(context.Background(), created.ID, update, 7)
	require.NoError(t, err)

	// full replace, not a merge
	require.Len(t, res.Ingredients, 1)
	assert.Equal(t, uint(3), res.Ingredients[0].ID)
	assert.Equal(t, 5, res.Ingredients[0].Amount)

	for _, link := range env.recipeRepo.links[created.ID] {
		assert.NotEqual(t, uint(1), link.IngredientID)
	}
}

func TestUpdateRecipeForbiddenForNonAuthor(t *testing.T) {
	env := newTestEnv()

	created, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.NoError(t, err)

	_, err = env.service.UpdateRecipe(context.Background(), created.ID, validSaveRequest(), 8)
	require.ErrorIs(t, err, domain.ErrUnauthorizedRecipeAccess)
}

func TestUpdateRecipeNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.service.UpdateRecipe(context.Background(), 42, validSaveRequest(), 7)
	require.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestCreateRecipeWriteFailed(t *testing.T) {
	env := newTestEnv()
	env.recipeRepo.failWrites = true

	_, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.ErrorIs(t, err, domain.ErrRecipeWriteFailed)
	assert.Empty(t, env.recipeRepo.recipes)
}

func TestDeleteRecipe(t *testing.T) {
	env := newTestEnv()

	created, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.NoError(t, err)

	t.Run("non-author is refused", func(t *testing.T) {
		err := env.service.DeleteRecipe(context.Background(), created.ID, 8)
		require.ErrorIs(t, err, domain.ErrUnauthorizedRecipeAccess)
	})

	t.Run("author deletes", func(t *testing.T) {
		require.NoError(t, env.service.DeleteRecipe(context.Background(), created.ID, 7))
		_, err := env.service.GetRecipeDetail(context.Background(), created.ID, 7)
		require.ErrorIs(t, err, domain.ErrRecipeNotFound)
	})
}

func TestFavoriteToggle(t *testing.T) {
	env := newTestEnv()

	created, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.NoError(t, err)

	require.NoError(t, env.service.FavoriteRecipe(context.Background(), 8, created.ID))
	require.ErrorIs(t, env.service.FavoriteRecipe(context.Background(), 8, created.ID), domain.ErrAlreadyFavorited)

	require.NoError(t, env.service.UnfavoriteRecipe(context.Background(), 8, created.ID))
	require.ErrorIs(t, env.service.UnfavoriteRecipe(context.Background(), 8, created.ID), domain.ErrFavoriteNotFound)
}

func TestFavoriteUnknownRecipe(t *testing.T) {
	env := newTestEnv()
	require.ErrorIs(t, env.service.FavoriteRecipe(context.Background(), 8, 42), domain.ErrRecipeNotFound)
}

func TestShoppingCartToggle(t *testing.T) {
	env := newTestEnv()

	created, err := env.service.CreateRecipe(context.Background(), validSaveRequest(), 7)
	require.NoError(t, err)

	require.NoError(t, env.service.AddToShoppingCart(context.Background(), 8, created.ID))
	require.ErrorIs(t, env.service.AddToShoppingCart(context.Background(), 8, created.ID), domain.ErrAlreadyInCart)

	require.NoError(t, env.service.RemoveFromShoppingCart(context.Background(), 8, created.ID))
	require.ErrorIs(t, env.service.RemoveFromShoppingCart(context.Background(), 8, created.ID), domain.ErrCartEntryNotFound)
}

func TestAggregateShoppingCart(t *testing.T) {
	env := newTestEnv()

	first := validSaveRequest()
	first.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 2}, {ID: 2, Amount: 1}}
	second := validSaveRequest()
	second.Name = "Porridge"
	second.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 3}}

	firstRecipe, err := env.service.CreateRecipe(context.Background(), first, 7)
	require.NoError(t, err)
	secondRecipe, err := env.service.CreateRecipe(context.Background(), second, 7)
	require.NoError(t, err)

	require.NoError(t, env.service.AddToShoppingCart(context.Background(), 8, firstRecipe.ID))
	require.NoError(t, env.service.AddToShoppingCart(context.Background(), 8, secondRecipe.ID))

	items, err := env.service.AggregateShoppingCart(context.Background(), 8)
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, uint(1), items[0].IngredientID)
	assert.Equal(t, "flour", items[0].Name)
	assert.Equal(t, 5, items[0].Amount)
	assert.Equal(t, uint(2), items[1].IngredientID)
	assert.Equal(t, 1, items[1].Amount)
}

func TestAggregateEmptyCart(t *testing.T) {
	env := newTestEnv()

	items, err := env.service.AggregateShoppingCart(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDownloadShoppingCart(t *testing.T) {
	env := newTestEnv()

	req := validSaveRequest()
	req.Ingredients = []domain.RecipeIngredientRequest{{ID: 1, Amount: 4}}
	created, err := env.service.CreateRecipe(context.Background(), req, 7)
	require.NoError(t, err)
	require.NoError(t, env.service.AddToShoppingCart(context.Background(), 8, created.ID))

	body, err := env.service.DownloadShoppingCart(context.Background(), 8)
	require.NoError(t, err)

	assert.Contains(t, string(body), "Shopping list")
	assert.Contains(t, string(body), "- flour (g): 4")
}
