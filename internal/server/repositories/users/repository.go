// Package users contains the credential store: persistence of usernames,
// password hashes and roles.
package users

import (
	"context"

	"github.com/dmitrijs2005/docvault/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. A duplicate username yields
	// common.ErrorConflict and leaves the existing row untouched.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns the user or common.ErrorNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdatePassword replaces the stored hash and bumps updated_at.
	// Unknown usernames yield common.ErrorNotFound.
	UpdatePassword(ctx context.Context, username string, passwordHash string) error

	// Count returns the total number of users.
	Count(ctx context.Context) (int64, error)

	// List returns all users, newest first.
	List(ctx context.Context) ([]models.UserInfo, error)
}
