package bootstrap

import (
	"testing"
	"time"

	"supplyguard/internal/bootstrap/config"
)

func TestNewClockPinsDateAndKeepsRunning(t *testing.T) {
	current := time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC)
	clock, err := NewClock(config.ClockConfig{Today: "2025-04-10", Location: "UTC"}, func() time.Time { return current })
	if err != nil {
		t.Fatalf("NewClock() error = %v", err)
	}

	if got := clock().Format(time.DateTime); got != "2025-04-10 14:05:00" {
		t.Fatalf("clock() = %s", got)
	}

	current = current.Add(90 * time.Minute)
	if got := clock().Format(time.DateTime); got != "2025-04-10 15:35:00" {
		t.Fatalf("clock() after 90m = %s", got)
	}
}

func TestNewClockWithoutTodayUsesRealTime(t *testing.T) {
	current := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	clock, err := NewClock(config.ClockConfig{Location: "UTC"}, func() time.Time { return current })
	if err != nil {
		t.Fatalf("NewClock() error = %v", err)
	}
	if !clock().Equal(current) {
		t.Fatalf("clock() = %s, want %s", clock(), current)
	}
}

func TestNewClockRejectsUnknownLocation(t *testing.T) {
	if _, err := NewClock(config.ClockConfig{Location: "Mars/Olympus"}, nil); err == nil {
		t.Fatalf("NewClock() error = nil")
	}
}
