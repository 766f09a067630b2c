package index

// Metrics receives engine activity. Implementations must be safe for
// concurrent use since every watcher reports from its own goroutine.
type Metrics interface {
	EventApplied(vaultID string, kind EventKind)
	EventFailed(vaultID string)
	ReindexFinished(vaultID string, entries int, err error)
	WatcherStateChanged(vaultID string, state WatcherState)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) EventApplied(string, EventKind)          {}
func (NopMetrics) EventFailed(string)                      {}
func (NopMetrics) ReindexFinished(string, int, error)      {}
func (NopMetrics) WatcherStateChanged(string, WatcherState) {}
