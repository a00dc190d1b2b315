package storage

import (
	"encoding/json"
	"fmt"
	"sync"
)

// MockShard creates in-memory storage shards for tests.
func MockShard() Shard {
	store := NewMockStorage()
	return func(shard string) (Persistence, error) {
		return store, nil
	}
}

// MockStorage keeps the values in memory, round-tripping them through json
// so that load behaviour matches the file store.
type MockStorage struct {
	mutex    *sync.RWMutex
	elements map[Key]string
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		mutex:    new(sync.RWMutex),
		elements: make(map[Key]string),
	}
}

func (m *MockStorage) Store(k Key, value interface{}) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	bb, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not marshal value: %w", err)
	}
	m.elements[k] = string(bb)
	return nil
}

func (m *MockStorage) Load(k Key, value interface{}) error {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if v, ok := m.elements[k]; ok {
		if err := json.Unmarshal([]byte(v), value); err != nil {
			return fmt.Errorf("could not unmarshal value: %w", err)
		}
		return nil
	}
	return fmt.Errorf("no element for '%+v': %w", k, NotFoundErr)
}

// Size returns the number of stored elements.
func (m *MockStorage) Size() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.elements)
}
