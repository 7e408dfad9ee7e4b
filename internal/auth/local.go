package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	userctl "github.com/dirgate/dirgate/internal/db/controller/user"
	"github.com/dirgate/dirgate/internal/db/models"
)

// LocalProvider handles local database authentication.
type LocalProvider struct {
	db *gorm.DB
}

const (
	whereIDAndSource = "id = ? AND source = ?"

	whereID = "id = ?"
)

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	// Find user by username
	err := p.db.Where("username = ? AND source = ?", username, models.SourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// Check if user is active
	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	// Verify password
	if !user.VerifyPassword(password) {
		return nil, ErrInvalidPassword
	}

	return &user, nil
}

// CreateUser creates a new local user.
func (p *LocalProvider) CreateUser(
	username, email, password, displayName string,
	admin bool,
) (*models.User, error) {
	user := &models.User{
		Active:      true,
		Username:    username,
		Email:       email,
		Password:    models.HashPassword(password),
		DisplayName: displayName,
		Admin:       admin,
		Source:      models.SourceLocal,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := userctl.Create(p.db, user); err != nil {
		if errors.Is(err, userctl.ErrUserAlreadyExists) {
			return nil, ErrUserNameExists
		}

		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// UpdateUser updates an existing local user.
func (p *LocalProvider) UpdateUser(userID uint64, email, displayName string, admin bool) error {
	updates := map[string]interface{}{
		"email":        email,
		"display_name": displayName,
		"admin":        admin,
		"updated_at":   time.Now(),
	}

	return p.db.Model(&models.User{}).
		Where(whereIDAndSource, userID, models.SourceLocal).
		Updates(updates).Error
}

// ChangePassword changes a user's password.
func (p *LocalProvider) ChangePassword(userID uint64, oldPassword, newPassword string) error {
	var user models.User
	if err := p.db.Where(whereIDAndSource, userID, models.SourceLocal).
		First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	// Verify old password
	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	// Update password
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("password", models.HashPassword(newPassword)).Error
}

// ResetPassword resets a user's password (admin function).
func (p *LocalProvider) ResetPassword(userID uint64, newPassword string) error {
	return p.db.Model(&models.User{}).
		Where(whereIDAndSource, userID, models.SourceLocal).
		Update("password", models.HashPassword(newPassword)).Error
}

// ActivateUser activates a user account.
func (p *LocalProvider) ActivateUser(userID uint64) error {
	return userctl.SetActive(p.db, userID, true)
}

// DeactivateUser deactivates a user account.
func (p *LocalProvider) DeactivateUser(userID uint64) error {
	return userctl.SetActive(p.db, userID, false)
}

// DeleteUser deletes a user.
func (p *LocalProvider) DeleteUser(userID uint64) error {
	return userctl.Delete(p.db, userID)
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(userID uint64) (*models.User, error) {
	user, err := userctl.GetByID(p.db, userID)
	if err != nil {
		if errors.Is(err, userctl.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}

// GetUserByUsername retrieves a user by username regardless of source.
func (p *LocalProvider) GetUserByUsername(username string) (*models.User, error) {
	user, err := userctl.GetByUsername(p.db, username)
	if err != nil {
		if errors.Is(err, userctl.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}

// ListUsers lists users with an optional source filter.
func (p *LocalProvider) ListUsers(
	source models.Source,
	limit, offset int,
) ([]models.User, int64, error) {
	return userctl.List(p.db, source, limit, offset)
}
