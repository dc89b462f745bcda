// Package storage provides the key/value media the token store persists to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hafizbahtiar/console/internal/config"
)

var ErrNotFound = errors.New("storage: key not found")

// Storage is a minimal string key/value medium. Get returns ErrNotFound for
// missing keys and Delete of a missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Open returns the backend selected by cfg.Driver and a close func.
func Open(ctx context.Context, cfg config.StorageConfig) (Storage, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), func() {}, nil
	case "file":
		f, err := NewFile(cfg.Path, cfg.Secret)
		if err != nil {
			return nil, nil, err
		}
		return f, func() {}, nil
	case "redis":
		r, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	case "postgres":
		pg, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Noop stores nothing. It stands in where no persistent medium exists.
type Noop struct{}

var _ Storage = Noop{}

func (Noop) Get(context.Context, string) (string, error) { return "", ErrNotFound }
func (Noop) Set(context.Context, string, string) error   { return nil }
func (Noop) Delete(context.Context, string) error        { return nil }
