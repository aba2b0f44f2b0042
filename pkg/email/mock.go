package email

import (
	"context"
	"sync"
)

// SentMessage records one delivery attempt made through MockSender
type SentMessage struct {
	Message        Message
	AttachmentPath string
}

// MockSender implements Sender for tests. It records every message
// and returns the configured result.
type MockSender struct {
	mu       sync.Mutex
	sent     []SentMessage
	Accepted bool
	Err      error
}

// NewMockSender creates a mock sender that accepts every message
func NewMockSender() *MockSender {
	return &MockSender{Accepted: true}
}

var _ Sender = (*MockSender)(nil)

// SendInvoiceEmail records the message and returns the configured result
func (m *MockSender) SendInvoiceEmail(ctx context.Context, msg Message, attachmentPath string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, SentMessage{Message: msg, AttachmentPath: attachmentPath})

	if m.Err != nil {
		return false, m.Err
	}
	return m.Accepted, nil
}

// Sent returns a copy of all recorded messages
func (m *MockSender) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// NoopSender accepts every message without sending anything. It backs
// environments with no SMTP relay so the pipeline can still complete.
type NoopSender struct{}

var _ Sender = NoopSender{}

// SendInvoiceEmail reports success without contacting any server
func (NoopSender) SendInvoiceEmail(ctx context.Context, msg Message, attachmentPath string) (bool, error) {
	return true, nil
}
