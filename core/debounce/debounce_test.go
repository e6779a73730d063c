package debounce

import (
	"testing"
	"time"
)

type fakeClock struct {
	current time.Time
}

func (clock *fakeClock) now() time.Time {
	return clock.current
}

func (clock *fakeClock) advance(step time.Duration) {
	clock.current = clock.current.Add(step)
}

func TestAttemptSequence(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		gaps     []time.Duration
		want     []bool
	}{
		{name: "first_call_allowed", interval: time.Second, gaps: []time.Duration{0}, want: []bool{true}},
		{name: "within_interval", interval: 2 * time.Second, gaps: []time.Duration{0, 1999 * time.Millisecond}, want: []bool{true, false}},
		{name: "exact_interval", interval: 2 * time.Second, gaps: []time.Duration{0, 2 * time.Second}, want: []bool{true, true}},
		{name: "past_interval", interval: time.Second, gaps: []time.Duration{0, 1500 * time.Millisecond}, want: []bool{true, true}},
		{
			name:     "skip_does_not_reset_window",
			interval: time.Second,
			gaps:     []time.Duration{0, 600 * time.Millisecond, 400 * time.Millisecond, 100 * time.Millisecond},
			want:     []bool{true, false, true, false},
		},
		{name: "zero_interval", interval: 0, gaps: []time.Duration{0, 0, 0}, want: []bool{true, true, true}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			clock := &fakeClock{current: time.UnixMilli(1_700_000_000_000)}
			gate := New(test.interval, WithClock(clock.now))
			for index, gap := range test.gaps {
				clock.advance(gap)
				if got := gate.Attempt(); got != test.want[index] {
					t.Fatalf("attempt %d: got %v want %v", index, got, test.want[index])
				}
			}
		})
	}
}

func TestAttemptAllowedAtClockEpoch(t *testing.T) {
	clock := &fakeClock{}
	gate := New(time.Hour, WithClock(clock.now))
	if !gate.Attempt() {
		t.Fatalf("first attempt must pass even at the zero time")
	}
	if gate.Attempt() {
		t.Fatalf("second attempt within interval must be skipped")
	}
}

func TestLastAllowedAtTracksAllowedCalls(t *testing.T) {
	clock := &fakeClock{current: time.UnixMilli(1_000)}
	gate := New(time.Second, WithClock(clock.now))
	if !gate.LastAllowedAt().IsZero() {
		t.Fatalf("expected zero before first attempt")
	}
	gate.Attempt()
	first := gate.LastAllowedAt()
	clock.advance(10 * time.Millisecond)
	gate.Attempt()
	if !gate.LastAllowedAt().Equal(first) {
		t.Fatalf("skipped attempt must not move last allowed time")
	}
	if gate.MinInterval() != time.Second {
		t.Fatalf("unexpected interval %s", gate.MinInterval())
	}
}
