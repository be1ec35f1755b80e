// Package timer reconciles a question's countdown from stored timestamps.
//
// Nothing here touches a clock: callers pass now in, so every handler and
// every observer computes the same remaining time from the same row.
package timer

import (
	"time"

	"github.com/mcdev12/quizparty/go/internal/models"
)

// Input is the slice of session state the countdown depends on
type Input struct {
	StartedAt   *time.Time
	PausedAt    *time.Time
	PausedMs    int64
	DurationSec int
}

// State is the reconciled countdown at a point in time
type State struct {
	ElapsedMs   int64 `json:"elapsedMs"`
	RemainingMs int64 `json:"remainingMs"`
	IsPaused    bool  `json:"isPaused"`
}

// Expired reports whether a running (unpaused) countdown reached zero
func (s State) Expired() bool {
	return !s.IsPaused && s.RemainingMs <= 0
}

// FromSession extracts the timer input from a session row
func FromSession(s *models.Session) Input {
	return Input{
		StartedAt:   s.QuestionStartedAt,
		PausedAt:    s.PauseStartedAt,
		PausedMs:    s.PausedMs,
		DurationSec: s.QuestionDurationSec,
	}
}

// Compute returns the countdown state at now.
// A missing start is treated as starting at now.
func Compute(in Input, now time.Time) State {
	effectiveNow := now
	if in.PausedAt != nil {
		effectiveNow = *in.PausedAt
	}

	start := now
	if in.StartedAt != nil {
		start = *in.StartedAt
	}

	pausedMs := in.PausedMs
	if pausedMs < 0 {
		pausedMs = 0
	}

	elapsed := effectiveNow.Sub(start).Milliseconds() - pausedMs
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := int64(in.DurationSec)*1000 - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return State{
		ElapsedMs:   elapsed,
		RemainingMs: remaining,
		IsPaused:    in.PausedAt != nil,
	}
}

// ExpiresAt returns the wall-clock instant a running countdown hits zero.
// It is undefined while paused, so ok is false then.
func ExpiresAt(in Input) (at time.Time, ok bool) {
	if in.StartedAt == nil || in.PausedAt != nil {
		return time.Time{}, false
	}
	pausedMs := in.PausedMs
	if pausedMs < 0 {
		pausedMs = 0
	}
	d := time.Duration(in.DurationSec)*time.Second + time.Duration(pausedMs)*time.Millisecond
	return in.StartedAt.Add(d), true
}

// Bounds limits the per-question duration a host may choose
type Bounds struct {
	DefaultSeconds int `yaml:"question_seconds"`
	MinSeconds     int `yaml:"min_seconds"`
	MaxSeconds     int `yaml:"max_seconds"`
}

// DefaultBounds returns the stock 20s question with a 5..120s range
func DefaultBounds() Bounds {
	return Bounds{
		DefaultSeconds: 20,
		MinSeconds:     5,
		MaxSeconds:     120,
	}
}

// Clamp pins sec into [MinSeconds, MaxSeconds]; zero or negative input
// falls back to DefaultSeconds.
func (b Bounds) Clamp(sec int) int {
	if sec <= 0 {
		sec = b.DefaultSeconds
	}
	if sec < b.MinSeconds {
		return b.MinSeconds
	}
	if sec > b.MaxSeconds {
		return b.MaxSeconds
	}
	return sec
}
