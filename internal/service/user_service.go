// Package service holds the application's use cases on top of the repositories.
package service

import (
	"context"
	"errors"
	"strings"

	"pinboard/internal/models"
	"pinboard/internal/repository"
	"pinboard/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user or a wrong password.
var ErrInvalidCredentials = models.NewUnauthorizedError("Invalid username or password")

type UserService struct {
	userRepo repository.UserRepository
	hashCost int
}

type RegisterInput struct {
	Username string
	Email    string
	Contact  string
	Name     string
	Password string
}

// UpdateDetailsInput carries the editable profile fields. Empty values keep
// the stored value.
type UpdateDetailsInput struct {
	UserID   uint
	Username string
	Name     string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, hashCost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, mostly for tests and seeding.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Name = strings.TrimSpace(in.Name)

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateContact(in.Contact); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Contact:  in.Contact,
		Name:     in.Name,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the stored hash after checking the current password.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetCredentials(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return models.NewUnauthorizedError("Current password is incorrect")
		}
		return models.NewInternalError(err)
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	return s.userRepo.Update(ctx, userID, map[string]interface{}{"password": string(hash)})
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns the user with their posts, newest first.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByIDWithPosts(ctx, id)
}

// MergeDetails loads the user and applies in without writing anything, so
// the caller can prepare a new session before SaveDetails commits it.
func (s *UserService) MergeDetails(ctx context.Context, in UpdateDetailsInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxNameLen = 100

	if username := strings.TrimSpace(in.Username); username != "" {
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Username = username
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		if len(name) > maxNameLen {
			return nil, models.NewValidationError("Name too long (max 100 characters)")
		}
		user.Name = name
	}
	return user, nil
}

// SaveDetails persists the username and name of a user returned by MergeDetails.
func (s *UserService) SaveDetails(ctx context.Context, user *models.User) error {
	return s.userRepo.Update(ctx, user.ID, map[string]interface{}{
		"username": user.Username,
		"name":     user.Name,
	})
}

// SetProfileImage stores filename as the user's profile image and returns
// the filename it replaced, if any.
func (s *UserService) SetProfileImage(ctx context.Context, userID uint, filename string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	previous := user.ProfileImageName()
	if err := s.userRepo.Update(ctx, userID, map[string]interface{}{"profile_image": filename}); err != nil {
		return "", err
	}
	return previous, nil
}
