// Package user provides CRUD operations for local user records.
package user

import (
	"errors"

	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/db/models"
)

const (
	usernameQueryPattern = "username = ?"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameEmpty is returned when attempting to create or look up a user with an empty username.
	ErrUsernameEmpty = errors.New("username cannot be empty")
	// ErrUserAlreadyExists is returned when attempting to create a user whose username is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// GetByUsername retrieves a user by username.
func GetByUsername(db *gorm.DB, username string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}
	if username == "" {
		return nil, ErrUsernameEmpty
	}

	var user models.User
	result := db.Where(usernameQueryPattern, username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByID retrieves a user by its ID.
func GetByID(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.First(&user, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// GetByExternalID retrieves a user by its external identifier and source.
func GetByExternalID(db *gorm.DB, externalID string, source models.Source) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var user models.User
	result := db.Where("external_id = ? AND source = ?", externalID, source).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}

	return &user, nil
}

// Create creates a new user record in the database.
func Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		return ErrDBNil
	}
	if user == nil || user.Username == "" {
		return ErrUsernameEmpty
	}

	// Check if the username is already taken
	var existing models.User
	result := db.Where(usernameQueryPattern, user.Username).First(&existing)
	if result.Error == nil {
		return ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	result = db.Create(user)
	if result.Error != nil {
		return result.Error
	}

	return nil
}

// List retrieves users with optional source filter and pagination.
// It returns the matching page of users and the total count.
func List(db *gorm.DB, source models.Source, limit, offset int) ([]models.User, int64, error) {
	if db == nil {
		return nil, 0, ErrDBNil
	}

	var (
		users []models.User
		total int64
	)

	query := db.Model(&models.User{})
	if source != "" {
		query = query.Where("source = ?", source)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// SetActive activates or deactivates a user account.
func SetActive(db *gorm.DB, id uint64, active bool) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Model(&models.User{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete soft deletes a user.
func Delete(db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
