package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils/mailing"
	"foodgram-backend/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type (
	UserService interface {
		Register(ctx context.Context, req domain.UserRegisterRequest) (domain.UserResponse, error)
		Login(ctx context.Context, req domain.UserLoginRequest) (domain.UserLoginResponse, error)
		Me(ctx context.Context, userID uint) (domain.UserResponse, error)
		GetUsers(ctx context.Context, page, limit int, requesterID uint) ([]domain.UserResponse, int64, error)
		GetUserDetail(ctx context.Context, id uint, requesterID uint) (domain.UserResponse, error)
		Subscribe(ctx context.Context, userID, authorID uint) error
		Unsubscribe(ctx context.Context, userID, authorID uint) error
		GetSubscriptions(ctx context.Context, userID uint, recipesLimit, page, limit int) ([]domain.SubscriptionResponse, int64, error)
		ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error
		ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
	}
}

func toUserResponse(user *entities.User, isSubscribed bool) domain.UserResponse {
	return domain.UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: isSubscribed,
	}
}

func (s *userService) Register(ctx context.Context, req domain.UserRegisterRequest) (domain.UserResponse, error) {
	if _, err := s.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return domain.UserResponse{}, domain.ErrEmailAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserResponse{}, err
	}

	if _, err := s.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return domain.UserResponse{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.UserResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserResponse{}, err
	}

	user := &entities.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}

	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		// concurrent register with the same email or username loses to the
		// unique index; re-query to report which field collided
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, lookupErr := s.userRepository.GetUserByEmail(ctx, req.Email); lookupErr == nil {
				return domain.UserResponse{}, domain.ErrEmailAlreadyExists
			}
			return domain.UserResponse{}, domain.ErrUsernameTaken
		}
		return domain.UserResponse{}, err
	}

	return toUserResponse(user, false), nil
}

func (s *userService) Login(ctx context.Context, req domain.UserLoginRequest) (domain.UserLoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserLoginResponse{}, domain.ErrCredentialsNotMatch
		}
		return domain.UserLoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return domain.UserLoginResponse{}, domain.ErrCredentialsNotMatch
	}

	token := s.jwtService.GenerateTokenUser(strconv.FormatUint(uint64(user.ID), 10), user.Role)
	return domain.UserLoginResponse{Token: token, Role: user.Role}, nil
}

func (s *userService) Me(ctx context.Context, userID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}
	return toUserResponse(user, false), nil
}

func (s *userService) GetUsers(ctx context.Context, page, limit int, requesterID uint) ([]domain.UserResponse, int64, error) {
	users, count, err := s.userRepository.GetUsers(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.UserResponse, 0, len(users))
	for _, user := range users {
		isSubscribed := false
		if requesterID != 0 && requesterID != user.ID {
			isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, user.ID)
			if err != nil {
				return nil, 0, err
			}
		}
		result = append(result, toUserResponse(user, isSubscribed))
	}
	return result, count, nil
}

func (s *userService) GetUserDetail(ctx context.Context, id uint, requesterID uint) (domain.UserResponse, error) {
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserResponse{}, domain.ErrUserNotFound
		}
		return domain.UserResponse{}, err
	}

	isSubscribed := false
	if requesterID != 0 && requesterID != user.ID {
		isSubscribed, err = s.userRepository.IsSubscribed(ctx, requesterID, user.ID)
		if err != nil {
			return domain.UserResponse{}, err
		}
	}
	return toUserResponse(user, isSubscribed), nil
}

func (s *userService) Subscribe(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		return domain.ErrSelfSubscribe
	}

	if _, err := s.userRepository.GetUserByID(ctx, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	subscribed, err := s.userRepository.IsSubscribed(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if subscribed {
		return domain.ErrAlreadySubscribed
	}

	subscription := &entities.Subscription{
		UserID:   userID,
		AuthorID: authorID,
	}
	if err := s.userRepository.CreateSubscription(ctx, subscription); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadySubscribed
		}
		return err
	}
	return nil
}

func (s *userService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	affected, err := s.userRepository.DeleteSubscription(ctx, userID, authorID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSubscribeNotFound
	}
	return nil
}

func (s *userService) GetSubscriptions(ctx context.Context, userID uint, recipesLimit, page, limit int) ([]domain.SubscriptionResponse, int64, error) {
	authors, count, err := s.userRepository.GetSubscribedAuthors(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.SubscriptionResponse, 0, len(authors))
	for _, author := range authors {
		recipes := author.Recipes
		if recipesLimit > 0 && len(recipes) > recipesLimit {
			recipes = recipes[:recipesLimit]
		}

		preview := make([]domain.RecipeBaseResponse, 0, len(recipes))
		for _, recipe := range recipes {
			preview = append(preview, domain.RecipeBaseResponse{
				ID:          recipe.ID,
				Name:        recipe.Name,
				Image:       recipe.ImageURL,
				CookingTime: recipe.CookingTime,
			})
		}

		result = append(result, domain.SubscriptionResponse{
			UserResponse: toUserResponse(author, true),
			Recipes:      preview,
			RecipesCount: len(author.Recipes),
		})
	}
	return result, count, nil
}

func (s *userService) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) error {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	token, err := s.jwtService.GenerateTokenForgetPassword(map[string]any{
		"user_id": strconv.FormatUint(uint64(user.ID), 10),
	}, 30*time.Minute)
	if err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", mailing.LoadMailConfig().AppURL, token)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>Use the link below to reset your password. The link expires in 30 minutes.</p><p><a href=%q>Reset password</a></p>",
		user.FirstName, resetLink,
	)
	return mailing.SendMail(user.Email, "Password reset", body)
}

func (s *userService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	claims, err := s.jwtService.ValidateTokenForgetPassword(req.Token)
	if err != nil {
		return err
	}

	rawID, ok := claims["user_id"].(string)
	if !ok {
		return domain.ErrTokenInvalid
	}
	userID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return domain.ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepository.UpdatePassword(ctx, uint(userID), string(hash))
}
