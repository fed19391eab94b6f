package store

import (
	"sync"

	"github.com/sirupsen/logrus"

	"accountd/internal/domain"
)

// EventKind tags account lifecycle events.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventUpdated     EventKind = "updated"
	EventDeactivated EventKind = "deactivated"
)

// Event carries a lifecycle notification. User is a snapshot taken after the
// mutation was persisted.
type Event struct {
	Kind EventKind
	User domain.User
}

// Subscriber receives lifecycle events. Subscribers run synchronously on the
// mutating goroutine, in subscription order; a slow subscriber delays the
// caller. Subscribers must not call back into the store's write operations.
type Subscriber func(Event)

// Notifier is a registry of lifecycle subscribers. A panicking subscriber is
// recovered and logged; it never affects the persisted mutation or the
// remaining subscribers.
type Notifier struct {
	mu     sync.RWMutex
	subs   []Subscriber
	logger *logrus.Logger
}

func NewNotifier(logger *logrus.Logger) *Notifier {
	return &Notifier{logger: logger}
}

func (n *Notifier) Subscribe(fn Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

func (n *Notifier) Notify(evt Event) {
	n.mu.RLock()
	subs := make([]Subscriber, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, fn := range subs {
		n.dispatch(fn, evt)
	}
}

func (n *Notifier) dispatch(fn Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil && n.logger != nil {
			n.logger.WithFields(logrus.Fields{
				"event":   evt.Kind,
				"user_id": evt.User.ID,
			}).Warnf("subscriber panic: %v", r)
		}
	}()
	fn(evt)
}
