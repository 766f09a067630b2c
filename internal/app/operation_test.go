package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		now    time.Time
		wantID string
	}{
		{
			name:   "utc start time",
			op:     "Reindex",
			now:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			wantID: "20240115T103000Z",
		},
		{
			name:   "local time is normalized",
			op:     "Serve",
			now:    time.Date(2024, 1, 15, 12, 30, 5, 0, time.FixedZone("CEST", 2*3600)),
			wantID: "20240115T103005Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.op, tt.now)

			if op.Name != tt.op {
				t.Errorf("Name = %q, want %q", op.Name, tt.op)
			}
			if op.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", op.ID, tt.wantID)
			}
			if !op.StartedAt.Equal(tt.now) {
				t.Errorf("StartedAt = %v, want %v", op.StartedAt, tt.now)
			}
		})
	}
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  string
		wantMessage string
	}{
		{name: "success", err: nil, wantStatus: RunSuccess, wantMessage: ""},
		{name: "failure", err: errors.New("root missing"), wantStatus: RunError, wantMessage: "root missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := runOutcome(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if msg != tt.wantMessage {
				t.Errorf("message = %q, want %q", msg, tt.wantMessage)
			}
		})
	}
}
