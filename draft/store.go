package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"rankwell/wizard"
)

var ErrNotFound = errors.New("draft not found")

// Store persists serialized draft snapshots by key.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

const NewEntity = "new"

func ListingKey(userID, entityID string) string {
	return key(userID, "listing-draft-", entityID)
}

func PostKey(userID, entityID string) string {
	return key(userID, "blog-draft-", entityID)
}

func key(userID, prefix, entityID string) string {
	if entityID == "" {
		entityID = NewEntity
	}
	return userID + ":" + prefix + entityID
}

// Snapshot is what gets written on every autosave: the draft plus wizard position.
type Snapshot[D any] struct {
	Draft   D            `json:"draft"`
	Wizard  wizard.State `json:"wizard"`
	SavedAt time.Time    `json:"savedAt"`
}

func EncodeSnapshot[D any](snap Snapshot[D]) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding draft: %w", err)
	}
	return data, nil
}

func SaveSnapshot[D any](ctx context.Context, s Store, key string, snap Snapshot[D]) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	return s.Save(ctx, key, data)
}

func LoadSnapshot[D any](ctx context.Context, s Store, key string) (Snapshot[D], error) {
	var snap Snapshot[D]
	data, err := s.Load(ctx, key)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decoding draft %s: %w", key, err)
	}
	return snap, nil
}

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string][]byte{}}
}

func (m *MemoryStore) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
