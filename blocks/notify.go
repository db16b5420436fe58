// ABOUTME: Notify block rendering a message and handing it to a pluggable sender.
// ABOUTME: The default sender collects notifications in-process, which also serves tests.
package blocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flumehq/flume/engine"
)

// Notification is one message produced by the notify block.
type Notification struct {
	Subject string
	Body    string
	Channel string
	At      time.Time
}

// Sender delivers notifications. Delivery side effects are opaque to the engine.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// CollectSender accumulates notifications in memory.
type CollectSender struct {
	mu   sync.Mutex
	sent []Notification
}

func (s *CollectSender) Send(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

// Sent returns a copy of all collected notifications.
func (s *CollectSender) Sent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.sent))
	copy(out, s.sent)
	return out
}

// NotifyBlock renders inputs["body"] (required) and inputs["subject"] and
// sends them through its Sender. Output: sent, body, subject, channel.
type NotifyBlock struct {
	sender Sender
}

// NewNotifyBlock creates a notify block with the given sender.
// A nil sender defaults to an in-process CollectSender.
func NewNotifyBlock(sender Sender) *NotifyBlock {
	if sender == nil {
		sender = &CollectSender{}
	}
	return &NotifyBlock{sender: sender}
}

func (b *NotifyBlock) ID() string { return "notify" }

func (b *NotifyBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	body := stringInput(inputs, "body", "")
	if body == "" {
		return nil, fmt.Errorf("notify requires a body input")
	}

	n := Notification{
		Subject: stringInput(inputs, "subject", ""),
		Body:    body,
		Channel: stringInput(inputs, "channel", "default"),
		At:      time.Now(),
	}
	if err := b.sender.Send(ctx, n); err != nil {
		return nil, fmt.Errorf("send notification: %w", err)
	}

	return map[string]any{
		"sent":    true,
		"body":    n.Body,
		"subject": n.Subject,
		"channel": n.Channel,
	}, nil
}
