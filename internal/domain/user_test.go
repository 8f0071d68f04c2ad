package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("Anna Petrova", "anna@example.com", RoleExecutor, LeagueC, 160, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if !user.WalletMain.IsZero() || !user.WalletKarma.IsZero() {
		t.Error("Expected zeroed wallets on a new user")
	}
	if user.QualityScore != 100 {
		t.Errorf("Expected quality score 100, got %v", user.QualityScore)
	}
	if !user.IsActive {
		t.Error("Expected a new user to be active")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Empty name
	_, err = NewUser("", "anna@example.com", RoleExecutor, LeagueC, 160, 2)
	if err != ErrEmptyFullName {
		t.Errorf("Expected error %v, got %v", ErrEmptyFullName, err)
	}

	// Bad email
	_, err = NewUser("Anna Petrova", "not-an-email", RoleExecutor, LeagueC, 160, 2)
	if err != ErrInvalidEmail {
		t.Errorf("Expected error %v, got %v", ErrInvalidEmail, err)
	}

	// Unknown role
	_, err = NewUser("Anna Petrova", "anna@example.com", Role("owner"), LeagueC, 160, 2)
	if err != ErrInvalidRole {
		t.Errorf("Expected error %v, got %v", ErrInvalidRole, err)
	}

	// Unknown league
	_, err = NewUser("Anna Petrova", "anna@example.com", RoleExecutor, League("D"), 160, 2)
	if err != ErrInvalidLeague {
		t.Errorf("Expected error %v, got %v", ErrInvalidLeague, err)
	}
}

func TestRoleIsManager(t *testing.T) {
	if RoleExecutor.IsManager() {
		t.Error("Expected executor to not be a manager")
	}
	if !RoleTeamlead.IsManager() {
		t.Error("Expected teamlead to be a manager")
	}
	if !RoleAdmin.IsManager() {
		t.Error("Expected admin to be a manager")
	}
}
