package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errDial = errors.New("dial failed")

func fast(attempts int) Backoff {
	return Backoff{Attempts: attempts, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(5), nil, "db", func(context.Context) error {
		calls++
		if calls < 3 {
			return errDial
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast(3), nil, "db", func(context.Context) error {
		calls++
		return errDial
	})
	if !errors.Is(err, errDial) {
		t.Errorf("expected errDial, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := Do(ctx, fast(3), nil, "db", func(context.Context) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestJitterBounds(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		got := jitter(d, 0.1)
		if got < 90*time.Millisecond || got > 110*time.Millisecond {
			t.Fatalf("jitter(%v) = %v, out of bounds", d, got)
		}
	}
	if got := jitter(d, 0); got != d {
		t.Errorf("jitter with zero fraction = %v, want %v", got, d)
	}
}
