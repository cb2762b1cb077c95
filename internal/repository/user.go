package repository

import (
	"context"

	"github.com/simbo/paintCSS/internal/domain"
)

// UserRepository stores and looks up users.
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound when no user has that name.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID returns ErrUserNotFound when the id is unknown.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save inserts the user when its ID is zero and updates it otherwise.
	// A taken username or email yields ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
