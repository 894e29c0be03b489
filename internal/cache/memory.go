package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	page      Page
	expiresAt time.Time
}

// Memory - кэш в памяти процесса с вытеснением по LRU.
type Memory struct {
	items *lru.Cache[string, entry]
	now   func() time.Time
}

// NewMemory создает кэш на size записей.
func NewMemory(size int) (*Memory, error) {
	items, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &Memory{items: items, now: time.Now}, nil
}

func (m *Memory) Get(_ context.Context, key string) (*Page, error) {
	e, ok := m.items.Get(key)
	if !ok {
		return nil, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.items.Remove(key)
		return nil, nil
	}
	page := e.page
	return &page, nil
}

func (m *Memory) Set(_ context.Context, key string, page *Page, ttl time.Duration) error {
	if ttl <= 0 || page == nil {
		return nil
	}
	m.items.Add(key, entry{page: *page, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.items.Purge()
	return nil
}
