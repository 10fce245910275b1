package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Message is a templated email handed to the delivery backend.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// Notifier delivers a single message. Implementations live outside the
// auth core (SMTP relay, transactional email provider, dev logger).
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

const dispatchTimeout = 10 * time.Second

// AsyncDispatcher sends mail on a detached goroutine. Delivery failure
// is logged and swallowed; it never aborts the enclosing auth operation.
type AsyncDispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewAsyncDispatcher(notifier Notifier, logger *slog.Logger) *AsyncDispatcher {
	return &AsyncDispatcher{notifier: notifier, logger: logger}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, msg Message) {
	// Detach from the request context so an already-answered request
	// does not cancel the send mid-flight.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.notifier.Send(sendCtx, msg); err != nil {
			d.logger.ErrorContext(sendCtx, "notification send failed",
				"template", msg.Template,
				"to", msg.To,
				"error", err,
			)
		}
	}()
}

// Wait blocks until all in-flight sends finish. Used by graceful
// shutdown and by tests.
func (d *AsyncDispatcher) Wait() { d.wg.Wait() }

// DevNotifier logs the message instead of delivering it.
type DevNotifier struct {
	logger *slog.Logger
}

func NewDevNotifier(logger *slog.Logger) *DevNotifier {
	return &DevNotifier{logger: logger}
}

func (n *DevNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.InfoContext(ctx, "email notification",
		"to", msg.To,
		"subject", msg.Subject,
		"template", msg.Template,
		"data", msg.Data,
	)
	return nil
}
