package email

import "context"

// MockSender records sent emails for tests.
type MockSender struct {
	Sent []Email
	Err  error
}

// Send records the email, failing with Err when configured.
func (m *MockSender) Send(ctx context.Context, email *Email) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Sent = append(m.Sent, *email)
	return "mock-message-id", nil
}
