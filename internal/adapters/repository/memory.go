package repository

import (
	"context"
	"sync"

	"github.com/okian/loadboard/internal/domain/model"
)

// MemoryEventLog is an in-process EventLog.
type MemoryEventLog struct {
	mu     sync.RWMutex
	events []model.RawEvent
	ids    map[string]struct{}
	closed bool
}

// NewMemoryEventLog creates an empty in-memory log.
func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{ids: make(map[string]struct{})}
}

// Append implements EventLog.
func (m *MemoryEventLog) Append(ctx context.Context, ev model.RawEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if ev.EventID != "" {
		if _, ok := m.ids[ev.EventID]; ok {
			return nil
		}
		m.ids[ev.EventID] = struct{}{}
	}
	m.events = append(m.events, ev)
	return nil
}

// All implements EventLog.
func (m *MemoryEventLog) All(ctx context.Context) ([]model.RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]model.RawEvent, len(m.events))
	copy(out, m.events)
	return out, nil
}

// Count implements EventLog.
func (m *MemoryEventLog) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.events), nil
}

// Close implements EventLog.
func (m *MemoryEventLog) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
