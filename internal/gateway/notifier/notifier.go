package notifier

import "context"

// TextNotifier defines a minimal text notification interface.
// It is intentionally small so different components can depend on it without
// importing concrete implementations (e.g. Telegram).
type TextNotifier interface {
	Send(ctx context.Context, text string) error
}

// Noop discards every message. Used when no channel is configured.
type Noop struct{}

func (Noop) Send(context.Context, string) error { return nil }
