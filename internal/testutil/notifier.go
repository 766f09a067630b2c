package testutil

import (
	"sync"
	"testing"
	"time"

	"vaultindex/internal/index"
)

// FakeNotifier hands out FakeSubscriptions that tests drive by hand.
type FakeNotifier struct {
	// SubscribeErr, when set, is returned by every Subscribe call.
	SubscribeErr error

	subscribed chan *FakeSubscription
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{subscribed: make(chan *FakeSubscription, 16)}
}

func (n *FakeNotifier) Subscribe(root string) (index.Subscription, error) {
	if n.SubscribeErr != nil {
		return nil, n.SubscribeErr
	}
	sub := &FakeSubscription{
		Root:   root,
		events: make(chan index.Event, 64),
		errors: make(chan error, 1),
	}
	n.subscribed <- sub
	return sub, nil
}

// WaitSubscribed returns the next subscription, failing the test after timeout.
func (n *FakeNotifier) WaitSubscribed(t *testing.T, timeout time.Duration) *FakeSubscription {
	t.Helper()
	select {
	case sub := <-n.subscribed:
		return sub
	case <-time.After(timeout):
		t.Fatal("timed out waiting for subscription")
		return nil
	}
}

// FakeSubscription is an index.Subscription fed by Send, Fail and End.
type FakeSubscription struct {
	Root string

	events chan index.Event
	errors chan error

	mu     sync.Mutex
	closed bool
	ended  bool
}

func (s *FakeSubscription) Events() <-chan index.Event { return s.events }
func (s *FakeSubscription) Errors() <-chan error       { return s.errors }

func (s *FakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether the consumer closed the subscription.
func (s *FakeSubscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Send delivers one event.
func (s *FakeSubscription) Send(kind index.EventKind, paths ...string) {
	s.events <- index.Event{Kind: kind, Paths: paths}
}

// Fail reports a delivery error.
func (s *FakeSubscription) Fail(err error) {
	s.errors <- err
}

// End closes the event stream as if the notifier went away.
func (s *FakeSubscription) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.ended = true
		close(s.events)
	}
}

var _ index.Notifier = (*FakeNotifier)(nil)
