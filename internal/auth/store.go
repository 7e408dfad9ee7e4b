package auth

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	userctl "github.com/dirgate/dirgate/internal/db/controller/user"
	"github.com/dirgate/dirgate/internal/db/models"
)

// GormUserStore is the production UserStore backed by gorm.
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore creates a gorm-backed user store.
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

// GetByUsername retrieves a user by username, mapping the controller's
// not-found sentinel to ErrUserNotFound.
func (s *GormUserStore) GetByUsername(username string) (*models.User, error) {
	user, err := userctl.GetByUsername(s.db, username)
	if err != nil {
		if errors.Is(err, userctl.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return user, nil
}

// Create stores a new user record.
func (s *GormUserStore) Create(user *models.User) error {
	if err := userctl.Create(s.db, user); err != nil {
		if errors.Is(err, userctl.ErrUserAlreadyExists) {
			return ErrUserNameExists
		}

		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}
