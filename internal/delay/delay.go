// Package delay produces randomised pauses so requests do not follow a fixed
// interval.
package delay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Range is an inclusive duration interval.
type Range struct {
	Min time.Duration `mapstructure:"min" yaml:"min" json:"min"`
	Max time.Duration `mapstructure:"max" yaml:"max" json:"max"`
}

// Between is shorthand for Range{Min: lo, Max: hi}.
func Between(lo, hi time.Duration) Range {
	return Range{Min: lo, Max: hi}
}

// Seconds builds a Range from fractional seconds.
func Seconds(lo, hi float64) Range {
	return Range{
		Min: time.Duration(lo * float64(time.Second)),
		Max: time.Duration(hi * float64(time.Second)),
	}
}

// Valid reports whether the range is non-negative and ordered.
func (r Range) Valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

func (r Range) String() string {
	return fmt.Sprintf("%s-%s", r.Min, r.Max)
}

// Random returns a uniformly distributed duration in [r.Min, r.Max].
// A degenerate or inverted range yields r.Min.
func Random(r Range) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min+1)
}

// Sleeper blocks for a duration.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Real sleeps on the wall clock and returns early with ctx.Err() on
// cancellation.
type Real struct{}

// Sleep implements Sleeper.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recorder records requested sleeps without blocking.
type Recorder struct {
	mu    sync.Mutex
	Slept []time.Duration
}

// Sleep implements Sleeper.
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.Slept = append(r.Slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Total returns the sum of recorded sleeps.
func (r *Recorder) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.Slept {
		sum += d
	}
	return sum
}

// Pause sleeps for a random duration drawn from r.
func Pause(ctx context.Context, s Sleeper, r Range) error {
	return s.Sleep(ctx, Random(r))
}

// ParseRange parses "MIN-MAX" (e.g. "1.5s-3s") or a single duration ("2s").
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("empty delay range")
	}
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		d, err := time.ParseDuration(s)
		if err != nil {
			return Range{}, fmt.Errorf("invalid delay %q: %w", s, err)
		}
		return Range{Min: d, Max: d}, nil
	}
	minD, err := time.ParseDuration(strings.TrimSpace(lo))
	if err != nil {
		return Range{}, fmt.Errorf("invalid delay range %q: %w", s, err)
	}
	maxD, err := time.ParseDuration(strings.TrimSpace(hi))
	if err != nil {
		return Range{}, fmt.Errorf("invalid delay range %q: %w", s, err)
	}
	return Range{Min: minD, Max: maxD}, nil
}
