package models

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	u := User{Password: HashPassword("hunter2")}

	if !strings.HasPrefix(u.Password, "$argon2id$") {
		t.Errorf("expected an argon2id hash, got %q", u.Password)
	}

	if !u.VerifyPassword("hunter2") {
		t.Error("expected matching password to verify")
	}

	if u.VerifyPassword("hunter3") {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	u := User{Password: "not a hash"}

	if u.VerifyPassword("anything") {
		t.Error("expected verification against a malformed hash to fail")
	}
}

func TestDirectoryManaged(t *testing.T) {
	cases := []struct {
		source Source
		want   bool
	}{
		{SourceLocal, false},
		{SourceDirectory, true},
		{SourceOIDC, false},
	}

	for _, tc := range cases {
		u := User{Source: tc.source}
		if got := u.DirectoryManaged(); got != tc.want {
			t.Errorf("DirectoryManaged() for source %q = %v, want %v", tc.source, got, tc.want)
		}
	}
}
