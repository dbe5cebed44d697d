package users

import (
	"context"
	"errors"
	"strings"

	"github.com/sublyy/sublyy-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrBadCredentials = errors.New("invalid password")
	ErrInvalidInput   = errors.New("invalid input")
)

// Service encapsulates user-related business logic
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// Signup creates a password-authenticated user. The plaintext password is
// hashed before it ever reaches the repository.
func (s *Service) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Settings:     models.DefaultSettings(),
	}
	return s.repo.Create(ctx, u)
}

// Authenticate verifies an email/password pair. bcrypt's comparison is
// constant-time with respect to the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	// OAuth-created users have no password hash and cannot log in this way
	if u.PasswordHash == "" {
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// FindOrCreateGoogleUser resolves the user for a verified Google identity,
// creating a password-less account on first login.
func (s *Service) FindOrCreateGoogleUser(ctx context.Context, googleID, name, email string) (*models.User, error) {
	if googleID == "" {
		return nil, ErrInvalidInput
	}
	u, err := s.repo.GetByGoogleID(ctx, googleID)
	if err == nil {
		return u, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	username := strings.TrimSpace(name)
	if username == "" {
		username = email
	}
	nu := &models.User{
		Username: username,
		Email:    strings.TrimSpace(strings.ToLower(email)),
		GoogleID: googleID,
		Settings: models.DefaultSettings(),
	}
	return s.repo.Create(ctx, nu)
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// SettingsUpdate is a partial update of the user's profile and settings.
// Nil pointers mean "leave unchanged".
type SettingsUpdate struct {
	Username          *string
	Email             *string
	ProfilePic        *string
	Currency          *string
	Notifications     *string
	WhatsappNumber    *string
	WhatsappConnected *bool
}

// UpdateSettings validates and applies a partial update, returning the
// updated user.
func (s *Service) UpdateSettings(ctx context.Context, id string, upd SettingsUpdate) (*models.User, error) {
	set := bson.M{}
	if upd.Username != nil {
		v := strings.TrimSpace(*upd.Username)
		if v == "" {
			return nil, ErrInvalidInput
		}
		set["username"] = v
	}
	if upd.Email != nil {
		v := strings.TrimSpace(strings.ToLower(*upd.Email))
		if v == "" || !strings.Contains(v, "@") {
			return nil, ErrInvalidInput
		}
		set["email"] = v
	}
	if upd.ProfilePic != nil {
		set["profilePic"] = *upd.ProfilePic
	}
	if upd.Currency != nil {
		v := strings.ToUpper(strings.TrimSpace(*upd.Currency))
		if len(v) != 3 {
			return nil, ErrInvalidInput
		}
		set["settings.currency"] = v
	}
	if upd.Notifications != nil {
		v := strings.ToLower(strings.TrimSpace(*upd.Notifications))
		if v != "enabled" && v != "disabled" {
			return nil, ErrInvalidInput
		}
		set["settings.notifications"] = v
	}
	if upd.WhatsappNumber != nil {
		set["settings.whatsappNumber"] = *upd.WhatsappNumber
	}
	if upd.WhatsappConnected != nil {
		set["settings.whatsappConnected"] = *upd.WhatsappConnected
	}
	if len(set) == 0 {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.UpdateFields(ctx, id, set)
}

// SetProfilePic stores the object key of the user's uploaded avatar.
func (s *Service) SetProfilePic(ctx context.Context, id, key string) (*models.User, error) {
	return s.repo.UpdateFields(ctx, id, bson.M{"profilePic": key})
}
