package credstore

import (
	"context"
	"sync"
)

// Memory keeps the pair in process memory. Nothing survives a restart.
type Memory struct {
	mu   sync.RWMutex
	pair Pair
}

// NewMemory returns a memory store seeded with p (which may be zero).
func NewMemory(p Pair) *Memory {
	return &Memory{pair: p}
}

func (m *Memory) Get(_ context.Context) (Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair, nil
}

func (m *Memory) Set(_ context.Context, p Pair) error {
	if err := validate(p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair = p

	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pair = Pair{}

	return nil
}

func (m *Memory) Close() error {
	return nil
}
