package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bloodlink/internal/model"
	"bloodlink/internal/repository"
)

// UserService manages profile records. Credentials and session handling
// belong to the external identity layer.
type UserService struct {
	store repository.Store
}

// NewUserService constructs a UserService.
func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

// Create validates and stores a new user profile.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if req.Email == "" || !isValidEmail(req.Email) {
		return nil, fmt.Errorf("%w: email is not a valid email address", ErrValidation)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
	}

	user := &model.User{
		ID:        uuid.New().String(),
		FullName:  req.FullName,
		Email:     req.Email,
		Role:      req.Role,
		Phone:     req.Phone,
		City:      req.City,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, *user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Get returns a single user profile.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return s.store.GetUser(ctx, id)
}

// isValidEmail does a basic structural check (no external deps).
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
