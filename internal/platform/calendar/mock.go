package calendar

import (
	"context"
	"fmt"
	"sync"
)

// MockCreator records created events for tests.
type MockCreator struct {
	mu         sync.Mutex
	events     []Event
	ShouldFail bool
	FailError  error
}

func NewMockCreator() *MockCreator {
	return &MockCreator{}
}

func (m *MockCreator) CreateEvent(_ context.Context, ev Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	if m.ShouldFail {
		return "", m.FailError
	}
	return fmt.Sprintf("mock-event-%d", len(m.events)), nil
}

// Events returns a copy of all recorded events.
func (m *MockCreator) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}
