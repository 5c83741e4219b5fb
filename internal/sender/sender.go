// Package sender defines the interface for outbound mail delivery backends.
package sender

import "context"

// Sender is the interface that outbound delivery backends must implement.
// The message is a fully composed raw MIME blob; backends transmit it
// without inspecting it.
//
// Implementations must attempt delivery at most once per call: a send
// that fails after the message may already have left must not be retried,
// or the user could receive duplicate replies.
type Sender interface {
	// SendRaw transmits a raw MIME message.
	// It returns an error if the delivery fails.
	SendRaw(ctx context.Context, raw []byte) error

	// Name returns the human-readable name of this sender.
	Name() string
}
