// Package prefstore provides sdk.Store backends for UI preferences.
package prefstore

import (
	"context"
	"errors"
	"sync"

	"github.com/trickstertwo/xtheme/sdk"
)

// ErrUnavailable is returned by a store that cannot serve requests.
var ErrUnavailable = errors.New("prefstore: store unavailable")

var _ sdk.Store = (*Memory)(nil)

// Memory is an in-process store. It outlives page sessions, which makes it
// the stand-in for browser storage in the simulator.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
	fail   error
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.fail != nil {
		return "", false, m.fail
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.values[key] = value
	return nil
}

// SetFailure makes every later call fail with err; nil restores service.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}
