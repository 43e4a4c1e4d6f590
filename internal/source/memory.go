package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	data []byte
	mod  time.Time
}

// Memory is an in-memory byte source for tests and one-shot tools.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry, 16)}
}

// Put stores bytes under a logical name with the given modification time.
func (m *Memory) Put(name string, data []byte, mod time.Time) error {
	cleaned, err := CleanName(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[cleaned] = memEntry{data: data, mod: mod}
	m.mu.Unlock()
	return nil
}

// Touch bumps the modification time without changing the bytes.
func (m *Memory) Touch(name string, mod time.Time) error {
	cleaned, err := CleanName(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[cleaned]
	if !ok {
		return fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	e.mod = mod
	m.entries[cleaned] = e
	return nil
}

func (m *Memory) Remove(name string) {
	cleaned, err := CleanName(name)
	if err != nil {
		return
	}
	m.mu.Lock()
	delete(m.entries, cleaned)
	m.mu.Unlock()
}

func (m *Memory) Load(ctx context.Context, name string) ([]byte, error) {
	e, err := m.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), e.data...), nil
}

func (m *Memory) Modified(ctx context.Context, name string) (time.Time, error) {
	e, err := m.lookup(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	return e.mod, nil
}

func (m *Memory) LoadWithInfo(ctx context.Context, name string) ([]byte, Info, error) {
	e, err := m.lookup(ctx, name)
	if err != nil {
		return nil, Info{}, err
	}
	return append([]byte(nil), e.data...), Info{ModTime: e.mod, Size: int64(len(e.data))}, nil
}

func (m *Memory) lookup(ctx context.Context, name string) (memEntry, error) {
	if err := ctx.Err(); err != nil {
		return memEntry{}, err
	}
	cleaned, err := CleanName(name)
	if err != nil {
		return memEntry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[cleaned]
	if !ok {
		return memEntry{}, fmt.Errorf("asset %q: %w", name, ErrNotFound)
	}
	return e, nil
}
