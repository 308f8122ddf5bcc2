package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/user-registry/internal/domain"
)

// Service errors.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")

	// ErrStoreUnavailable marks failures to reach the store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CreateUserInput represents input for creating a user.
type CreateUserInput struct {
	Username string
	Password string
	Roles    []string
	Timezone *string
	Active   *bool
}

// Service implements user business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// ListUsers returns every stored user.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if list == nil {
		list = make([]domain.User, 0)
	}
	return list, nil
}

// GetUser returns the user with the given username.
func (s *Service) GetUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// CreateUser builds a user from input, stamps created_ts and persists it.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	user := domain.NewUser(domain.NewUserParams{
		Username:  input.Username,
		Password:  input.Password,
		Roles:     input.Roles,
		Timezone:  input.Timezone,
		Active:    input.Active,
		CreatedAt: s.now(),
	})

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// UpdateUser applies the fields present in patch and returns the updated user.
func (s *Service) UpdateUser(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error) {
	if patch.Roles != nil && *patch.Roles == nil {
		empty := make([]string, 0)
		patch.Roles = &empty
	}

	user, err := s.repo.UpdateUser(ctx, username, patch)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user with the given username.
// Returns ErrUserNotFound when nothing was removed.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	deleted, err := s.repo.DeleteUser(ctx, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if deleted == 0 {
		return ErrUserNotFound
	}
	return nil
}
