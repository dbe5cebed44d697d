package subscriptions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository used by unit tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	store []*Subscription
	seq   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Insert(ctx context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *s
	if cp.ID == "" {
		cp.ID = fmt.Sprintf("sub-%d", m.seq)
	}
	now := time.Now().UTC()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.store = append(m.store, &cp)
	s.ID = cp.ID
	return nil
}

func (m *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Subscription{}
	for _, s := range m.store {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextPaymentDate.Before(out[j].NextPaymentDate)
	})
	return out, nil
}
