package email

import (
	"context"
	"sync"
)

// MockSender records sent messages for tests.
type MockSender struct {
	mu         sync.Mutex
	sent       []Message
	ShouldFail bool
	FailError  error
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.ShouldFail {
		return m.FailError
	}
	return nil
}

// Sent returns a copy of all recorded messages.
func (m *MockSender) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
