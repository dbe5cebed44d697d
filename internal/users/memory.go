package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sublyy/sublyy-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store map[string]*models.User
	seq   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{store: make(map[string]*models.User)}
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.store {
		if e.Email == u.Email {
			return nil, ErrDuplicateEmail
		}
	}
	m.seq++
	cp := *u
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("user-%d", m.seq)
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.store[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.store[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.GoogleID != "" && u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateFields mirrors the Mongo $set semantics for the dotted keys the
// service actually issues.
func (m *MemoryRepository) UpdateFields(ctx context.Context, id string, set bson.M) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "username":
			u.Username, _ = v.(string)
		case "email":
			u.Email, _ = v.(string)
		case "profilePic":
			u.ProfilePic, _ = v.(string)
		case "settings.currency":
			u.Settings.Currency, _ = v.(string)
		case "settings.notifications":
			u.Settings.Notifications, _ = v.(string)
		case "settings.whatsappNumber":
			u.Settings.WhatsappNumber, _ = v.(string)
		case "settings.whatsappConnected":
			u.Settings.WhatsappConnected, _ = v.(bool)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}
