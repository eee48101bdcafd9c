package models

import "testing"

func TestImageJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status ImageJobStatus
		want   bool
	}{
		{ImageJobStatusPending, false},
		{ImageJobStatusProcessing, false},
		{ImageJobStatusCompleted, true},
		{ImageJobStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
