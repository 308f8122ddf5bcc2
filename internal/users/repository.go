package users

import (
	"context"

	"github.com/bissquit/user-registry/internal/domain"
)

// Repository defines the interface for user data operations.
type Repository interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, username string, patch domain.UserPatch) (*domain.User, error)
	// DeleteUser returns the number of removed records.
	DeleteUser(ctx context.Context, username string) (int64, error)
}
