package snapshot

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSnapshot_Age(t *testing.T) {
	s := &Snapshot{
		Key:      "projects",
		Data:     json.RawMessage(`[]`),
		CachedAt: time.Now().Add(-time.Minute),
	}

	if s.Age() < time.Minute {
		t.Errorf("Age() = %v, want >= 1m", s.Age())
	}
}

func TestSnapshot_OlderThan(t *testing.T) {
	tests := []struct {
		name     string
		cachedAt time.Time
		d        time.Duration
		want     bool
	}{
		{"fresh", time.Now(), time.Hour, false},
		{"stale", time.Now().Add(-2 * time.Hour), time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Snapshot{Key: "tasks", CachedAt: tt.cachedAt}
			if got := s.OlderThan(tt.d); got != tt.want {
				t.Errorf("OlderThan(%v) = %v, want %v", tt.d, got, tt.want)
			}
		})
	}
}
