// Package notifier delivers scheduled notifications over one or more channels.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sankalp-sachan/ATTENDLY/internal/models"
	appErrors "github.com/sankalp-sachan/ATTENDLY/pkg/errors"
)

// Channel names accepted by New.
const (
	ChannelLog   = "log"
	ChannelInbox = "inbox"
	ChannelEmail = "email"
)

// ErrSkipped is returned by a channel that had nothing to do for a message,
// e.g. email without a recipient. Multi ignores it unless every channel skipped.
var ErrSkipped = errors.New("notifier: skipped")

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, msg models.NotificationMessage) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg models.NotificationMessage) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, msg models.NotificationMessage) error {
	return f(ctx, msg)
}

// Options carries the dependencies of the optional channels.
type Options struct {
	Logger *zap.Logger
	Inbox  InboxWriter
	Email  EmailOptions
}

// New builds the configured fan-out. Unknown channel names are an error; a
// channel missing its dependency is left out with a warning.
func New(channels []string, opts Options) (*Multi, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	named := make(map[string]Notifier, len(channels))
	for _, raw := range channels {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		switch name {
		case ChannelLog:
			named[name] = NewLogNotifier(logger)
		case ChannelInbox:
			if opts.Inbox == nil {
				logger.Warn("inbox channel requested without a store")
				continue
			}
			named[name] = NewInboxNotifier(opts.Inbox)
		case ChannelEmail:
			if opts.Email.APIKey == "" {
				logger.Warn("email channel requested without a SendGrid API key")
				continue
			}
			named[name] = NewEmailNotifier(opts.Email)
		default:
			return nil, fmt.Errorf("unknown notification channel %q", raw)
		}
	}
	if len(named) == 0 {
		named[ChannelLog] = NewLogNotifier(logger)
	}
	return NewMulti(named, logger), nil
}

// Multi fans a message out to every channel concurrently. Delivery succeeds
// when at least one channel delivered.
type Multi struct {
	channels map[string]Notifier
	logger   *zap.Logger
}

// NewMulti constructs a fan-out over named channels.
func NewMulti(channels map[string]Notifier, logger *zap.Logger) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{channels: channels, logger: logger}
}

// Channels lists the configured channel names.
func (m *Multi) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, msg models.NotificationMessage) error {
	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		delivered int
		errs      error
	)
	for name, ch := range m.channels {
		wg.Add(1)
		go func(name string, ch Notifier) {
			defer wg.Done()
			err := ch.Notify(ctx, msg)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				delivered++
			case errors.Is(err, ErrSkipped):
			default:
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}(name, ch)
	}
	wg.Wait()

	if errs == nil {
		if delivered == 0 {
			return ErrSkipped
		}
		return nil
	}
	if delivered > 0 {
		m.logger.Warn("notification partially delivered",
			zap.String("user_id", msg.UserID),
			zap.String("slot", string(msg.Slot)),
			zap.Int("delivered", delivered),
			zap.Error(errs))
		return nil
	}
	return appErrors.Wrap(errs, appErrors.ErrDeliveryFailed.Code, appErrors.ErrDeliveryFailed.Status, appErrors.ErrDeliveryFailed.Message)
}
