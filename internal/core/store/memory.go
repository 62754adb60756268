// Package store provides switch manager implementations.
//
// Memory keeps switches in process and suits tests and single-node tools.
// SQL persists switches through sqlx with named queries, and is what the
// admin API runs against. Both replace on register and fail with
// types.ErrSwitchNotFound when asked for, or to remove, an unknown name.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/solatis/switchboard/internal/types"
)

// Memory is an in-process switch manager.
// Stored switches are deep-copied on the way in and out.
type Memory struct {
	mu       sync.RWMutex
	switches map[string]*types.Switch
}

// NewMemory creates an empty in-memory manager.
func NewMemory() *Memory {
	return &Memory{switches: make(map[string]*types.Switch)}
}

// Switches returns every registered switch ordered by name.
func (m *Memory) Switches(ctx context.Context) ([]*types.Switch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Switch, 0, len(m.switches))
	for _, sw := range m.switches {
		out = append(out, cloneSwitch(sw))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the switch registered under name.
func (m *Memory) Get(ctx context.Context, name string) (*types.Switch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sw, ok := m.switches[name]
	if !ok {
		return nil, types.ErrSwitchNotFound
	}
	return cloneSwitch(sw), nil
}

// Register inserts sw, replacing any switch with the same name.
func (m *Memory) Register(ctx context.Context, sw *types.Switch) error {
	if !types.ValidSwitchName(sw.Name) {
		return types.NewFieldError("name", types.ErrInvalidSwitchName)
	}
	if !sw.State.Valid() {
		return types.NewFieldError("state", types.ErrInvalidChoice)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.switches[sw.Name] = cloneSwitch(sw)
	return nil
}

// Unregister removes the switch registered under name.
func (m *Memory) Unregister(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.switches[name]; !ok {
		return types.ErrSwitchNotFound
	}
	delete(m.switches, name)
	return nil
}

func cloneSwitch(sw *types.Switch) *types.Switch {
	out := *sw
	out.Conditions = make([]types.Condition, len(sw.Conditions))
	for i, c := range sw.Conditions {
		c.Operator.Variables = append([]types.Variable(nil), c.Operator.Variables...)
		out.Conditions[i] = c
	}
	return &out
}
