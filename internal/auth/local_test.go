package auth

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/dirgate/dirgate/internal/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate user model: %v", err)
	}

	return db
}

func TestLocalProvider_Authenticate(t *testing.T) {
	db := newTestDB(t)
	lp := NewLocalProvider(db)

	user, err := lp.CreateUser("alice", "alice@example.org", "secret", "Alice Example", false)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if !user.Active {
		t.Fatal("new user must be active by default")
	}

	// success
	got, err := lp.Authenticate("alice", "secret")
	if err != nil || got == nil || got.Username != "alice" {
		t.Fatalf("expected successful auth for alice, got user=%v err=%v", got, err)
	}

	// wrong password
	if _, err = lp.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}

	// unknown user
	if _, err = lp.Authenticate("nobody", "secret"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// disabled account
	if err = lp.DeactivateUser(user.ID); err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	if _, err = lp.Authenticate("alice", "secret"); !errors.Is(err, ErrUserAccountDisabled) {
		t.Fatalf("expected ErrUserAccountDisabled, got %v", err)
	}

	if err = lp.ActivateUser(user.ID); err != nil {
		t.Fatalf("failed to activate user: %v", err)
	}

	if _, err = lp.Authenticate("alice", "secret"); err != nil {
		t.Fatalf("expected auth to succeed again, got %v", err)
	}
}

func TestLocalProvider_AuthenticateSkipsExternalAccounts(t *testing.T) {
	db := newTestDB(t)
	lp := NewLocalProvider(db)

	directoryUser := &models.User{
		Active:   true,
		Username: "bob",
		Password: models.HashPassword("secret"),
		Source:   models.SourceDirectory,
	}
	if err := db.Create(directoryUser).Error; err != nil {
		t.Fatalf("failed to seed directory user: %v", err)
	}

	// a directory account must never authenticate through the local path
	if _, err := lp.Authenticate("bob", "secret"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestLocalProvider_CreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	lp := NewLocalProvider(db)

	if _, err := lp.CreateUser("alice", "alice@example.org", "secret", "", false); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if _, err := lp.CreateUser("alice", "other@example.org", "secret", "", false); !errors.Is(err, ErrUserNameExists) {
		t.Fatalf("expected ErrUserNameExists, got %v", err)
	}
}

func TestLocalProvider_ChangePassword(t *testing.T) {
	db := newTestDB(t)
	lp := NewLocalProvider(db)

	user, err := lp.CreateUser("alice", "alice@example.org", "oldpw", "", false)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err = lp.ChangePassword(user.ID, "wrong", "newpw"); !errors.Is(err, ErrInvalidOldPassword) {
		t.Fatalf("expected ErrInvalidOldPassword, got %v", err)
	}

	if err = lp.ChangePassword(user.ID, "oldpw", "newpw"); err != nil {
		t.Fatalf("failed to change password: %v", err)
	}

	if _, err = lp.Authenticate("alice", "newpw"); err != nil {
		t.Fatalf("expected auth with the new password, got %v", err)
	}

	if _, err = lp.Authenticate("alice", "oldpw"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("old password must no longer work, got %v", err)
	}
}

func TestLocalProvider_ResetPassword(t *testing.T) {
	db := newTestDB(t)
	lp := NewLocalProvider(db)

	user, err := lp.CreateUser("alice", "alice@example.org", "oldpw", "", false)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err = lp.ResetPassword(user.ID, "resetpw"); err != nil {
		t.Fatalf("failed to reset password: %v", err)
	}

	if _, err = lp.Authenticate("alice", "resetpw"); err != nil {
		t.Fatalf("expected auth with the reset password, got %v", err)
	}
}

func TestLocalProvider_UpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	lp := NewLocalProvider(db)

	user, err := lp.CreateUser("alice", "alice@example.org", "secret", "Alice", false)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err = lp.UpdateUser(user.ID, "new@example.org", "Alice Example", true); err != nil {
		t.Fatalf("failed to update user: %v", err)
	}

	updated, err := lp.GetUserByID(user.ID)
	if err != nil {
		t.Fatalf("failed to fetch user: %v", err)
	}

	if updated.Email != "new@example.org" || updated.DisplayName != "Alice Example" || !updated.Admin {
		t.Errorf("update not applied: %+v", updated)
	}

	if err = lp.DeleteUser(user.ID); err != nil {
		t.Fatalf("failed to delete user: %v", err)
	}

	if _, err = lp.GetUserByID(user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
}

func TestGormUserStore_MapsControllerErrors(t *testing.T) {
	db := newTestDB(t)
	store := NewGormUserStore(db)

	if _, err := store.GetByUsername("missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	user := &models.User{Active: true, Username: "carol", Source: models.SourceDirectory}
	if err := store.Create(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	if err := store.Create(&models.User{Username: "carol"}); !errors.Is(err, ErrUserNameExists) {
		t.Fatalf("expected ErrUserNameExists, got %v", err)
	}

	got, err := store.GetByUsername("carol")
	if err != nil || got.Username != "carol" {
		t.Fatalf("expected carol, got user=%v err=%v", got, err)
	}
}
