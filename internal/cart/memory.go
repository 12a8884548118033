package cart

import (
	"context"
	"sync"
	"time"

	"github.com/urbanthreads/storefront/internal/checkout"
	"github.com/urbanthreads/storefront/internal/domain"
)

// MemoryStore is the in-process Store used for development and tests.
// Entries expire after SessionTTL like the Redis store.
type MemoryStore struct {
	mu      sync.Mutex
	carts   map[string]memEntry
	wizards map[string]memEntry
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:   make(map[string]memEntry),
		wizards: make(map[string]memEntry),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) get(m map[string]memEntry, key string, out interface{}) error {
	s.mu.Lock()
	e, ok := m[key]
	if ok && time.Now().After(e.expiresAt) {
		delete(m, key)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(e.data, out)
}

func (s *MemoryStore) set(m map[string]memEntry, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	m[key] = memEntry{data: data, expiresAt: time.Now().Add(SessionTTL)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) del(m map[string]memEntry, key string) {
	s.mu.Lock()
	delete(m, key)
	s.mu.Unlock()
}

func (s *MemoryStore) GetCart(_ context.Context, sid string) (*domain.Cart, error) {
	var c domain.Cart
	if err := s.get(s.carts, sid, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *MemoryStore) SaveCart(_ context.Context, sid string, cart *domain.Cart) error {
	return s.set(s.carts, sid, cart)
}

func (s *MemoryStore) DeleteCart(_ context.Context, sid string) error {
	s.del(s.carts, sid)
	return nil
}

func (s *MemoryStore) GetWizard(_ context.Context, sid string) (*checkout.Wizard, error) {
	var w checkout.Wizard
	if err := s.get(s.wizards, sid, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *MemoryStore) SaveWizard(_ context.Context, sid string, w *checkout.Wizard) error {
	return s.set(s.wizards, sid, w)
}

func (s *MemoryStore) DeleteWizard(_ context.Context, sid string) error {
	s.del(s.wizards, sid)
	return nil
}
