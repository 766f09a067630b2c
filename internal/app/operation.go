package app

import "time"

// Operation identifies the CLI command being run. Its ID tags every log line
// the command writes, so lines from one invocation can be grepped together.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
}

// NewOperation creates an operation whose ID is its UTC start time.
func NewOperation(name string, now time.Time) *Operation {
	return &Operation{
		ID:        now.UTC().Format("20060102T150405Z"),
		Name:      name,
		StartedAt: now,
	}
}

// Index run statuses.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// runOutcome maps a reindex result to the status and message recorded on its index run.
func runOutcome(err error) (status, message string) {
	if err != nil {
		return RunError, err.Error()
	}
	return RunSuccess, ""
}
