package util

import (
	"testing"
	"time"
)

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid month", time.Date(2026, 10, 18, 14, 30, 0, 0, time.UTC), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"first day", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"last instant", time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeriodStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("PeriodStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPeriodStart_UsesLocalCalendar(t *testing.T) {
	// 2026-11-01 01:00 in UTC+5:30 is still October in UTC
	ist := time.FixedZone("IST", 5*60*60+30*60)
	local := time.Date(2026, 11, 1, 1, 0, 0, 0, ist)

	got := PeriodStart(local)
	want := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("PeriodStart(%v) = %v, want %v", local, got, want)
	}

	if got := PeriodStart(local.UTC()); !got.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PeriodStart in UTC = %v, want October", got)
	}
}

func TestNextPeriod_YearBoundary(t *testing.T) {
	got := NextPeriod(time.Date(2026, 12, 15, 0, 0, 0, 0, time.UTC))
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextPeriod = %v, want %v", got, want)
	}
}

func TestSamePeriod(t *testing.T) {
	a := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	if !SamePeriod(a, time.Date(2026, 10, 31, 10, 0, 0, 0, time.UTC)) {
		t.Error("expected dates in October to share a period")
	}
	if SamePeriod(a, time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected September and October to differ")
	}
}

func TestCurrentPeriod_NilLocation(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	got := CurrentPeriod(now, nil)
	if !got.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CurrentPeriod = %v, want 2026-10-01", got)
	}
}
