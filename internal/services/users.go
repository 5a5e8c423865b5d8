// Package services implements the user and pin operations on top of a store.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GFB-Team3/backend/internal/apperr"
	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
	"github.com/GFB-Team3/backend/internal/utils"
)

const msgInvalidCredentials = "Invalid credentials"

type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService {
	return &UserService{store: s}
}

// SignUp registers a new account. The email is compared case-insensitively.
func (s *UserService) SignUp(ctx context.Context, email, username, password string) (models.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if email == "" {
		return models.User{}, apperr.BadRequestField("email", "email is required")
	}
	if username == "" {
		return models.User{}, apperr.BadRequestField("username", "username is required")
	}
	if password == "" {
		return models.User{}, apperr.BadRequestField("password", "password is required")
	}

	digest, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return models.User{}, apperr.BadRequestField("password", "password is too long")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	var created models.User
	err = s.store.WithTx(ctx, func(repo store.Repository) error {
		_, err := repo.GetUserByEmail(ctx, email)
		if err == nil {
			return apperr.Conflict(fmt.Sprintf("Email %s is already registered", email))
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("check email: %w", err)
		}

		created, err = repo.CreateUser(ctx, models.User{
			Email:        email,
			Username:     username,
			PasswordHash: digest,
		})
		if errors.Is(err, store.ErrConflict) {
			return apperr.Conflict("Email or username already exists")
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	created.PasswordHash = ""
	return created, nil
}

// LogIn verifies credentials and returns the user id. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) LogIn(ctx context.Context, email, password string) (int, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return 0, apperr.Unauthorized(msgInvalidCredentials)
	}
	return user.ID, nil
}

func (s *UserService) GetProfile(ctx context.Context, userID int) (models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile changes the username when one is supplied. A nil username
// leaves the record untouched.
func (s *UserService) UpdateProfile(ctx context.Context, userID int, username *string) (models.User, error) {
	if username == nil {
		return s.GetProfile(ctx, userID)
	}
	name := strings.TrimSpace(*username)
	if name == "" {
		return models.User{}, apperr.BadRequestField("username", "username must not be empty")
	}

	var updated models.User
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		user, err := repo.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		user.Username = name
		updated, err = repo.UpdateUser(ctx, user)
		if errors.Is(err, store.ErrConflict) {
			return apperr.Conflict("Username already taken")
		}
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}

	updated.PasswordHash = ""
	return updated, nil
}

// ListPinsByUser returns an empty list for unknown users.
func (s *UserService) ListPinsByUser(ctx context.Context, userID int) ([]models.Pin, error) {
	pins, err := s.store.ListPinsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list pins by owner: %w", err)
	}
	return pins, nil
}

func (s *UserService) ListLikedPins(ctx context.Context, userID int) ([]models.Pin, error) {
	pins, err := s.store.ListLikedPins(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list liked pins: %w", err)
	}
	return pins, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
