package service

import (
	"context"
	"errors"
	"testing"

	"driveshare/internal/domain"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.Register(ctx, "alice", "alice@example.com", "pw123456")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("role = %s, want user", user.Role)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked in returned user")
	}

	got, err := env.users.Authenticate(ctx, "alice", "pw123456")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, user.ID)
	}
}

func TestRegisterTrimsWhitespace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.Register(ctx, "  dave  ", " Dave@Example.com ", "pw123456"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	user, err := env.users.Authenticate(ctx, "dave", "pw123456")
	if err != nil {
		t.Fatalf("Authenticate trimmed: %v", err)
	}
	if user.Email != "dave@example.com" {
		t.Errorf("email = %q, want lowercased trimmed", user.Email)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.Register(ctx, "alice", "alice@example.com", "pw123456"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := env.users.Register(ctx, "alice", "other@example.com", "other123"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate username: err = %v, want ErrUserAlreadyExists", err)
	}
	if _, err := env.users.Register(ctx, "bob", "alice@example.com", "other123"); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("duplicate email: err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "ab@example.com", "pw123456"},
		{"short password", "carol", "carol@example.com", "pw1"},
		{"bad email", "carol", "not-an-email", "pw123456"},
		{"empty username", "", "x@example.com", "pw123456"},
	}
	for _, tc := range cases {
		if _, err := env.users.Register(ctx, tc.username, tc.email, tc.password); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestAuthenticateFailuresIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.users.Register(ctx, "alice", "alice@example.com", "pw123456"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPw := env.users.Authenticate(ctx, "alice", "wrong")
	_, noUser := env.users.Authenticate(ctx, "nobody", "pw123456")

	if !errors.Is(wrongPw, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v", wrongPw)
	}
	if !errors.Is(noUser, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v", noUser)
	}
	if wrongPw.Error() != noUser.Error() {
		t.Errorf("login failures distinguishable: %q vs %q", wrongPw, noUser)
	}
}

func TestEnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.users.EnsureAdmin(ctx, "root", "root@example.com", "pw123456"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	// second call is a no-op
	if err := env.users.EnsureAdmin(ctx, "root", "root@example.com", "pw123456"); err != nil {
		t.Fatalf("EnsureAdmin again: %v", err)
	}

	admin, err := env.users.Authenticate(ctx, "root", "pw123456")
	if err != nil {
		t.Fatalf("Authenticate admin: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Errorf("role = %s, want admin", admin.Role)
	}
}
