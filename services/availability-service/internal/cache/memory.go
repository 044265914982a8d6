package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/heri/availabilities/services/availability-service/internal/model"
)

// Memory is an in-process window cache for single-instance deployments and tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	window    model.Window
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (model.Window, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return model.Window{}, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return model.Window{}, false, nil
	}
	return e.window.Clone(), true, nil
}

func (m *Memory) Set(_ context.Context, key string, w model.Window, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{window: w.Clone(), expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *Memory) InvalidateNamespace(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
