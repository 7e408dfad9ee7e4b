package user

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	// Migrate the schema
	err = db.AutoMigrate(&models.User{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedUsers inserts test data into the database.
func seedUsers(t *testing.T, db *gorm.DB, users []models.User) {
	t.Helper()
	for _, user := range users {
		err := db.Create(&user).Error
		require.NoError(t, err, "failed to seed test data")
	}
}

func TestGetByUsername(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		username      string
		seedData      []models.User
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			username:      "alice",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty username",
			dbParam:       db,
			username:      "",
			expectedError: ErrUsernameEmpty,
		},
		{
			name:          "user not found",
			dbParam:       db,
			username:      "nonexistent",
			expectedError: ErrUserNotFound,
		},
		{
			name:     "successful get",
			dbParam:  db,
			username: "alice",
			seedData: []models.User{
				{Username: "alice", Active: true, Source: models.SourceLocal},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Clean database for each test
			if tc.dbParam != nil {
				tc.dbParam.Exec("DELETE FROM users")
			}

			if tc.seedData != nil {
				seedUsers(t, tc.dbParam, tc.seedData)
			}

			user, err := GetByUsername(tc.dbParam, tc.username)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, user)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.username, user.Username)
		})
	}
}

func TestGetByExternalID(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		externalID    string
		source        models.Source
		seedData      []models.User
		expectedError error
		expectedName  string
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			externalID:    "x",
			source:        models.SourceOIDC,
			expectedError: ErrDBNil,
		},
		{
			name:          "not found",
			dbParam:       db,
			externalID:    "missing",
			source:        models.SourceOIDC,
			expectedError: ErrUserNotFound,
		},
		{
			name:       "source mismatch is not found",
			dbParam:    db,
			externalID: "uid=bob,dc=example,dc=org",
			source:     models.SourceOIDC,
			seedData: []models.User{
				{Username: "bob", ExternalID: "uid=bob,dc=example,dc=org", Source: models.SourceDirectory},
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:       "successful get",
			dbParam:    db,
			externalID: "uid=bob,dc=example,dc=org",
			source:     models.SourceDirectory,
			seedData: []models.User{
				{Username: "bob", ExternalID: "uid=bob,dc=example,dc=org", Source: models.SourceDirectory},
			},
			expectedName: "bob",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.dbParam != nil {
				tc.dbParam.Exec("DELETE FROM users")
			}

			if tc.seedData != nil {
				seedUsers(t, tc.dbParam, tc.seedData)
			}

			user, err := GetByExternalID(tc.dbParam, tc.externalID, tc.source)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, user)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedName, user.Username)
		})
	}
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		user          *models.User
		seedData      []models.User
		expectedError error
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			user:          &models.User{Username: "alice"},
			expectedError: ErrDBNil,
		},
		{
			name:          "empty username",
			dbParam:       db,
			user:          &models.User{},
			expectedError: ErrUsernameEmpty,
		},
		{
			name:    "duplicate username",
			dbParam: db,
			user:    &models.User{Username: "alice", Source: models.SourceLocal},
			seedData: []models.User{
				{Username: "alice", Source: models.SourceLocal},
			},
			expectedError: ErrUserAlreadyExists,
		},
		{
			name:    "successful create",
			dbParam: db,
			user:    &models.User{Username: "alice", Active: true, Source: models.SourceLocal},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.dbParam != nil {
				tc.dbParam.Exec("DELETE FROM users")
			}

			if tc.seedData != nil {
				seedUsers(t, tc.dbParam, tc.seedData)
			}

			err := Create(tc.dbParam, tc.user)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)

				return
			}

			require.NoError(t, err)
			assert.NotZero(t, tc.user.ID)
		})
	}
}

func TestList(t *testing.T) {
	db := setupTestDB(t)

	seedUsers(t, db, []models.User{
		{Username: "alice", Source: models.SourceLocal},
		{Username: "bob", Source: models.SourceDirectory},
		{Username: "carol", Source: models.SourceDirectory},
		{Username: "dave", Source: models.SourceOIDC},
	})

	testCases := []struct {
		name          string
		source        models.Source
		limit         int
		offset        int
		expectedCount int
		expectedTotal int64
	}{
		{
			name:          "all sources",
			source:        "",
			limit:         10,
			expectedCount: 4,
			expectedTotal: 4,
		},
		{
			name:          "directory only",
			source:        models.SourceDirectory,
			limit:         10,
			expectedCount: 2,
			expectedTotal: 2,
		},
		{
			name:          "pagination",
			source:        "",
			limit:         2,
			offset:        2,
			expectedCount: 2,
			expectedTotal: 4,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			users, total, err := List(db, tc.source, tc.limit, tc.offset)

			require.NoError(t, err)
			assert.Len(t, users, tc.expectedCount)
			assert.Equal(t, tc.expectedTotal, total)
		})
	}

	t.Run("nil database", func(t *testing.T) {
		_, _, err := List(nil, "", 10, 0)
		assert.ErrorIs(t, err, ErrDBNil)
	})
}

func TestSetActiveAndDelete(t *testing.T) {
	db := setupTestDB(t)

	seedUsers(t, db, []models.User{
		{Username: "alice", Active: true, Source: models.SourceLocal},
	})

	alice, err := GetByUsername(db, "alice")
	require.NoError(t, err)

	t.Run("deactivate", func(t *testing.T) {
		require.NoError(t, SetActive(db, alice.ID, false))

		got, errGet := GetByID(db, alice.ID)
		require.NoError(t, errGet)
		assert.False(t, got.Active)
	})

	t.Run("set active on unknown user", func(t *testing.T) {
		assert.ErrorIs(t, SetActive(db, 99999, true), ErrUserNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, Delete(db, alice.ID))

		_, errGet := GetByID(db, alice.ID)
		assert.ErrorIs(t, errGet, ErrUserNotFound)
	})

	t.Run("delete unknown user", func(t *testing.T) {
		assert.ErrorIs(t, Delete(db, 99999), ErrUserNotFound)
	})
}
