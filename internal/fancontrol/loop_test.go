package fancontrol

import (
	"context"
	"errors"
	"testing"
	"time"

	"hddfand/internal/faults"
)

// scriptedSampler returns readings in order and cancels once they run out.
type scriptedSampler struct {
	readings []int
	errs     []error
	calls    int
	drives   []string
	cancel   context.CancelFunc
}

func (s *scriptedSampler) Sample(ctx context.Context, drives []string) (int, error) {
	s.drives = drives
	idx := s.calls
	s.calls++
	if idx < len(s.errs) && s.errs[idx] != nil {
		return 0, s.errs[idx]
	}
	if idx >= len(s.readings) {
		s.cancel()
		return 0, ctx.Err()
	}
	return s.readings[idx], nil
}

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func newTestLoop(t *testing.T, sampler Sampler, c *Controller, failSafe bool) *Loop {
	t.Helper()
	loop, err := NewLoop(LoopConfig{
		Sampler:    sampler,
		Controller: c,
		Drives:     []string{"/dev/sda", "/dev/sdb"},
		Interval:   time.Minute,
		FailSafe:   failSafe,
	})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	loop.after = immediate
	return loop
}

func TestLoopRunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampler := &scriptedSampler{readings: []int{47, 40, 33}, cancel: cancel}
	act := &recordingActuator{}
	loop := newTestLoop(t, sampler, newTestController(t, hysteresis(), act), true)

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sampler.calls != 4 {
		t.Fatalf("sampler calls = %d, want 4", sampler.calls)
	}
	if len(sampler.drives) != 2 {
		t.Fatalf("drives = %v", sampler.drives)
	}
	if len(act.writes) != 2 || act.writes[0] != 255 || act.writes[1] != 0 {
		t.Fatalf("writes = %v, want [255 0]", act.writes)
	}
}

func TestLoopSensorFailureEngagesFailSafe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sensorErr := faults.Wrap(faults.ErrSensorRead, "hddtemp", "run", "exit status 1", nil)
	sampler := &scriptedSampler{readings: []int{30}, errs: []error{nil, sensorErr}, cancel: cancel}
	act := &recordingActuator{}
	loop := newTestLoop(t, sampler, newTestController(t, hysteresis(), act), true)

	err := loop.Run(ctx)
	if !errors.Is(err, faults.ErrSensorRead) {
		t.Fatalf("expected ErrSensorRead, got %v", err)
	}
	if len(act.writes) != 2 || act.writes[1] != 255 {
		t.Fatalf("writes = %v, want disengage then fail-safe engage", act.writes)
	}
}

func TestLoopSensorFailureWithoutFailSafe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampler := &scriptedSampler{errs: []error{faults.ErrSensorRead}, cancel: cancel}
	act := &recordingActuator{}
	loop := newTestLoop(t, sampler, newTestController(t, hysteresis(), act), false)

	if err := loop.Run(ctx); !errors.Is(err, faults.ErrSensorRead) {
		t.Fatalf("expected ErrSensorRead, got %v", err)
	}
	if len(act.writes) != 0 {
		t.Fatalf("expected no writes, got %v", act.writes)
	}
}

func TestLoopActuatorFailureIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampler := &scriptedSampler{readings: []int{50, 50}, cancel: cancel}
	act := &recordingActuator{err: errors.New("permission denied")}
	loop := newTestLoop(t, sampler, newTestController(t, hysteresis(), act), true)

	if err := loop.Run(ctx); !errors.Is(err, faults.ErrActuatorWrite) {
		t.Fatalf("expected ErrActuatorWrite, got %v", err)
	}
	if sampler.calls != 1 {
		t.Fatalf("sampler calls = %d, want 1", sampler.calls)
	}
}

func TestLoopSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sampler := &scriptedSampler{readings: []int{30, 30}, cancel: cancel}
	loop := newTestLoop(t, sampler, newTestController(t, hysteresis(), &recordingActuator{}), true)
	loop.after = func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if sampler.calls != 1 {
		t.Fatalf("sampler calls = %d, want 1", sampler.calls)
	}
}

func TestNewLoopValidates(t *testing.T) {
	c, _ := NewController(hysteresis(), &recordingActuator{})
	if _, err := NewLoop(LoopConfig{Controller: c, Interval: time.Second}); err == nil {
		t.Fatal("expected error without sampler")
	}
	if _, err := NewLoop(LoopConfig{Sampler: &scriptedSampler{}, Controller: c}); err == nil {
		t.Fatal("expected error without interval")
	}
}
