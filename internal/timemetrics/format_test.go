package timemetrics

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{5 * time.Minute, "0:05"},
		{4*time.Hour + 15*time.Minute, "4:15"},
		{12 * time.Hour, "12:00"},
		{59*time.Minute + 59*time.Second, "0:59"},
		{-time.Hour, "0:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.in); got != tt.want {
			t.Fatalf("FormatClock(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
