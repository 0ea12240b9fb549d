package ports

import "context"

// Message is a templated notification addressed to a single recipient.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Notifier delivers a message. Implementations may be asynchronous; callers
// treat delivery as best-effort and never let a send failure abort the
// surrounding operation.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
