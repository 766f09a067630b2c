package index

// EventKind is the normalized kind of a filesystem notification.
type EventKind int

const (
	// EventOther covers notifications the index does not act on.
	EventOther EventKind = iota
	// EventCreate reports new paths.
	EventCreate
	// EventRemove reports deleted paths.
	EventRemove
	// EventModify reports changed paths. Renames arrive as modify events for
	// the old and/or new path, so handlers must not trust the label and check
	// the disk instead.
	EventModify
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventRemove:
		return "remove"
	case EventModify:
		return "modify"
	default:
		return "other"
	}
}

// Event is one filesystem notification affecting one or more absolute paths.
type Event struct {
	Kind  EventKind
	Paths []string
}

// Subscription delivers notifications for a directory tree until closed.
type Subscription interface {
	// Events is closed when the subscription ends.
	Events() <-chan Event

	// Errors reports delivery failures. Any error means notifications may
	// have been lost.
	Errors() <-chan error

	Close() error
}

// Notifier subscribes to change notifications for a directory and everything below it.
type Notifier interface {
	Subscribe(root string) (Subscription, error)
}
