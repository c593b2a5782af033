// Package notify provides the outbound delivery boundary: template
// resolution/rendering and per-channel senders.
package notify

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownChannel = errors.New("unknown notification channel")

// Rendered is the output of template rendering, ready for delivery. Subject
// is empty for channels without one.
type Rendered struct {
	Subject string
	Body    string
}

// Channel delivers one rendered message to one recipient. Implementations
// must honor ctx cancellation; callers bound every Send with a timeout.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient string, msg Rendered) error
}

// DeliveryError wraps a channel failure so callers can distinguish delivery
// faults from programming errors.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery via %s failed: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type Registry struct {
	channels map[string]Channel
}

func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{channels: make(map[string]Channel)}
	for _, ch := range channels {
		r.Register(ch)
	}
	return r
}

func (r *Registry) Register(ch Channel) {
	r.channels[ch.Name()] = ch
}

func (r *Registry) Get(name string) (Channel, error) {
	ch, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, name)
	}
	return ch, nil
}
