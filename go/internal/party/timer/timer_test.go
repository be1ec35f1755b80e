package timer

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		now  time.Time
		want State
	}{
		{
			name: "fresh question",
			in:   Input{StartedAt: at(0), DurationSec: 20},
			now:  t0,
			want: State{ElapsedMs: 0, RemainingMs: 20000},
		},
		{
			name: "running",
			in:   Input{StartedAt: at(0), DurationSec: 20},
			now:  t0.Add(7500 * time.Millisecond),
			want: State{ElapsedMs: 7500, RemainingMs: 12500},
		},
		{
			name: "expired clamps to zero",
			in:   Input{StartedAt: at(0), DurationSec: 20},
			now:  t0.Add(45 * time.Second),
			want: State{ElapsedMs: 45000, RemainingMs: 0},
		},
		{
			name: "paused freezes at pause instant",
			in:   Input{StartedAt: at(0), PausedAt: at(4 * time.Second), DurationSec: 20},
			now:  t0.Add(time.Hour),
			want: State{ElapsedMs: 4000, RemainingMs: 16000, IsPaused: true},
		},
		{
			name: "accumulated pause subtracts",
			in:   Input{StartedAt: at(0), PausedMs: 3000, DurationSec: 20},
			now:  t0.Add(10 * time.Second),
			want: State{ElapsedMs: 7000, RemainingMs: 13000},
		},
		{
			name: "clock skew never goes negative",
			in:   Input{StartedAt: at(5 * time.Second), DurationSec: 20},
			now:  t0,
			want: State{ElapsedMs: 0, RemainingMs: 20000},
		},
		{
			name: "missing start means just started",
			in:   Input{DurationSec: 15},
			now:  t0,
			want: State{ElapsedMs: 0, RemainingMs: 15000},
		},
		{
			name: "negative paused ms ignored",
			in:   Input{StartedAt: at(0), PausedMs: -500, DurationSec: 20},
			now:  t0.Add(time.Second),
			want: State{ElapsedMs: 1000, RemainingMs: 19000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.in, tt.now); got != tt.want {
				t.Fatalf("Compute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPauseAccounting(t *testing.T) {
	// Start at T0, pause at +3s for 4.25s, resume, submit at +10s.
	pauseStart := t0.Add(3 * time.Second)
	resume := pauseStart.Add(4250 * time.Millisecond)
	pausedMs := resume.Sub(pauseStart).Milliseconds()
	submitAt := t0.Add(10 * time.Second)

	got := Compute(Input{StartedAt: at(0), PausedMs: pausedMs, DurationSec: 20}, submitAt)

	want := submitAt.Sub(t0).Milliseconds() - pausedMs
	if got.ElapsedMs != want {
		t.Fatalf("elapsed = %d, want %d", got.ElapsedMs, want)
	}
}

func TestExpiresAt(t *testing.T) {
	in := Input{StartedAt: at(0), PausedMs: 2000, DurationSec: 20}
	got, ok := ExpiresAt(in)
	if !ok {
		t.Fatal("expected an expiry for a running question")
	}
	if want := t0.Add(22 * time.Second); !got.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", got, want)
	}
	if s := Compute(in, got); s.RemainingMs != 0 {
		t.Fatalf("remaining at expiry = %d", s.RemainingMs)
	}

	in.PausedAt = at(time.Second)
	if _, ok := ExpiresAt(in); ok {
		t.Fatal("paused question has no expiry")
	}
}

func TestClamp(t *testing.T) {
	b := DefaultBounds()
	tests := map[int]int{
		0:    20,
		-3:   20,
		1:    5,
		5:    5,
		30:   30,
		120:  120,
		9999: 120,
	}
	for in, want := range tests {
		if got := b.Clamp(in); got != want {
			t.Errorf("Clamp(%d) = %d, want %d", in, got, want)
		}
	}
}
