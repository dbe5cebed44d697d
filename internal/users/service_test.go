package users

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestSignupThenAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	u, err := svc.Signup(ctx, "alice", "Alice@Example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected user id to be set")
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "s3cret-pass" || u.PasswordHash == "" {
		t.Fatal("plaintext must never be stored")
	}
	if u.Settings.Currency != "USD" || u.Settings.Notifications != "enabled" {
		t.Fatalf("defaults not applied: %+v", u.Settings)
	}

	got, err := svc.Authenticate(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Authenticate error: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated wrong user: %q != %q", got.ID, u.ID)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, "a", "dup@example.com", "pw1"); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}
	if _, err := svc.Signup(ctx, "b", "dup@example.com", "pw2"); err != ErrDuplicateEmail {
		t.Fatalf("expected ErrDuplicateEmail, got: %v", err)
	}
	// no second record was created
	if _, err := repo.GetByEmail(ctx, "dup@example.com"); err != nil {
		t.Fatalf("original user missing: %v", err)
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	if _, err := svc.Signup(ctx, "bob", "bob@example.com", "right-pass"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "nobody@example.com", "x"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown email, got: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "bob@example.com", "wrong-pass"); err != ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials, got: %v", err)
	}
}

func TestAuthenticate_GoogleOnlyUserRejected(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	u, err := svc.FindOrCreateGoogleUser(ctx, "goog-1", "Carol", "carol@example.com")
	if err != nil {
		t.Fatalf("FindOrCreateGoogleUser: %v", err)
	}
	if u.PasswordHash != "" {
		t.Fatal("google user must have no password hash")
	}
	if _, err := svc.Authenticate(ctx, "carol@example.com", ""); err != ErrBadCredentials {
		t.Fatalf("expected ErrBadCredentials for password-less user, got: %v", err)
	}
}

func TestFindOrCreateGoogleUser_Idempotent(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	first, err := svc.FindOrCreateGoogleUser(ctx, "goog-42", "Dave", "dave@example.com")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.FindOrCreateGoogleUser(ctx, "goog-42", "Dave Again", "dave2@example.com")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user on repeat login: %q != %q", first.ID, second.ID)
	}
}

func TestUpdateSettings(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	u, _ := svc.Signup(ctx, "eve", "eve@example.com", "pw")

	cur := "eur"
	notif := "disabled"
	got, err := svc.UpdateSettings(ctx, u.ID, SettingsUpdate{Currency: &cur, Notifications: &notif})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got.Settings.Currency != "EUR" {
		t.Fatalf("currency not normalized: %q", got.Settings.Currency)
	}
	if got.Settings.Notifications != "disabled" {
		t.Fatalf("notifications not updated: %q", got.Settings.Notifications)
	}

	bad := "sometimes"
	if _, err := svc.UpdateSettings(ctx, u.ID, SettingsUpdate{Notifications: &bad}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for bad enum, got: %v", err)
	}
	badCur := "EURO"
	if _, err := svc.UpdateSettings(ctx, u.ID, SettingsUpdate{Currency: &badCur}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for bad currency, got: %v", err)
	}
}

func TestBcryptHashVerifiable(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()
	u, _ := svc.Signup(ctx, "f", "f@example.com", "check-me")
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("check-me")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}
