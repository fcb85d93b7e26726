package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/biobank/internal/apperror"
	"github.com/sakif/biobank/internal/model"
)

// createTestUser is a test helper that creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email, username string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: "$2a$04$fakehashfortestingonly0000000000000000000000000000000",
		IsActive:     true,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "test@example.com",
		Username:     "testuser",
		PasswordHash: "$2a$04$somethinghashed",
		IsActive:     true,
	}

	err := db.CreateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	// Verify the user was modified in-place (pointer receiver)
	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set user.CreatedAt")
	}
	if user.UpdatedAt.IsZero() {
		t.Error("CreateUser() did not set user.UpdatedAt")
	}

	t.Logf("Created user with ID: %s", user.ID)
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@example.com", "firstuser")

	duplicate := &model.User{
		Email:        "dup@example.com",
		Username:     "seconduser",
		PasswordHash: "x",
		IsActive:     true,
	}
	err := db.CreateUser(context.Background(), duplicate)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateEmailDifferentCase(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "case@example.com", "firstuser")

	// The UNIQUE index is COLLATE NOCASE, so the case variant must
	// collide even without any service-level pre-check.
	duplicate := &model.User{
		Email:        "CASE@Example.COM",
		Username:     "seconduser",
		PasswordHash: "x",
		IsActive:     true,
	}
	err := db.CreateUser(context.Background(), duplicate)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestUserCreate_DuplicateUsernameDifferentCase(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "first@example.com", "alice")

	duplicate := &model.User{
		Email:        "second@example.com",
		Username:     "ALICE",
		PasswordHash: "x",
		IsActive:     true,
	}
	err := db.CreateUser(context.Background(), duplicate)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "byid@example.com", "byid_user")

	found, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}

	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if found.Username != "byid_user" {
		t.Errorf("Username = %q, want %q", found.Username, "byid_user")
	}
	if !found.IsActive {
		t.Error("IsActive = false, want true")
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")

	if err == nil {
		t.Fatal("GetUserByID() should have returned an error for nonexistent ID")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByEmail_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "lookup@example.com", "lookup_user")

	found, err := db.GetUserByEmail(context.Background(), "LOOKUP@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByUsername_CaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "uname@example.com", "Casey")

	found, err := db.GetUserByUsername(context.Background(), "casey")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUserUpdate_DeactivatesAccount(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "active@example.com", "active_user")

	user.IsActive = false
	if err := db.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after update error = %v", err)
	}
	if found.IsActive {
		t.Error("IsActive = true after deactivation, want false")
	}
}

func TestUserUpdate_ChangesPasswordHash(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "rotate@example.com", "rotate_user")

	user.PasswordHash = "$2a$04$replacementhash"
	if err := db.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after update error = %v", err)
	}
	if found.PasswordHash != "$2a$04$replacementhash" {
		t.Errorf("PasswordHash = %q, want the replacement hash", found.PasswordHash)
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	ghost := &model.User{ID: "nonexistent", Email: "ghost@example.com", Username: "ghost"}
	err := db.UpdateUser(context.Background(), ghost)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUser() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestUserList(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "first@example.com", "first_user")
	createTestUser(t, db, "second@example.com", "second_user")
	createTestUser(t, db, "third@example.com", "third_user")

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("ListUsers() returned %d users, want 3", len(users))
	}

	seen := make(map[string]bool)
	for _, u := range users {
		seen[u.Email] = true
	}
	for _, email := range []string{"first@example.com", "second@example.com", "third@example.com"} {
		if !seen[email] {
			t.Errorf("ListUsers() result missing %s", email)
		}
	}

	// Oldest first.
	for i := 1; i < len(users); i++ {
		if users[i].CreatedAt.Before(users[i-1].CreatedAt) {
			t.Errorf("ListUsers() out of order: %s created before %s but listed after",
				users[i].Email, users[i-1].Email)
		}
	}
}

func TestUserList_Empty(t *testing.T) {
	db := newTestDB(t)

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 0 {
		t.Errorf("ListUsers() on empty database returned %d users, want 0", len(users))
	}
}
