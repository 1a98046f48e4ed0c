package platform

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestLifecycle_StartAndStop(t *testing.T) {
	lc := NewLifecycle()

	var started, stopped bool
	lc.Append("component",
		func(_ context.Context) error {
			started = true
			return nil
		},
		func(_ context.Context) error {
			stopped = true
			return nil
		})

	if err := lc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !started {
		t.Error("start callback not called")
	}
	if !lc.IsStarted() {
		t.Error("IsStarted() = false after Start()")
	}

	if err := lc.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !stopped {
		t.Error("stop callback not called")
	}
	if lc.IsStarted() {
		t.Error("IsStarted() = true after Stop()")
	}
}

func TestLifecycle_StartAlreadyStarted(t *testing.T) {
	lc := NewLifecycle()
	_ = lc.Start(context.Background())

	if err := lc.Start(context.Background()); err == nil {
		t.Error("Start() expected error for already started")
	}
}

func TestLifecycle_StopNotStarted(t *testing.T) {
	lc := NewLifecycle()
	if err := lc.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v, expected nil for not started", err)
	}
}

func TestLifecycle_StartRollbackOnError(t *testing.T) {
	lc := NewLifecycle()

	var calls []string
	record := func(s string, err error) func(context.Context) error {
		return func(context.Context) error {
			calls = append(calls, s)
			return err
		}
	}
	lc.Append("first", record("start1", nil), record("stop1", nil))
	lc.OnStop("closer", record("close", nil))
	lc.Append("second", record("start2", errors.New("start2 failed")), record("stop2", nil))
	lc.Append("third", record("start3", nil), record("stop3", nil))

	if err := lc.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}

	want := []string{"start1", "start2", "close", "stop1"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if lc.IsStarted() {
		t.Error("lifecycle should not be started after rollback")
	}
	if err := lc.Stop(context.Background()); err != nil {
		t.Errorf("Stop() after failed Start() error = %v", err)
	}
	if len(calls) != len(want) {
		t.Errorf("Stop() after rollback ran more callbacks: %v", calls)
	}
}

func TestLifecycle_StopInReverseOrder(t *testing.T) {
	lc := NewLifecycle()

	var order []int
	for i := 1; i <= 3; i++ {
		lc.OnStop("step", func(_ context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	_ = lc.Start(context.Background())
	_ = lc.Stop(context.Background())

	if want := []int{3, 2, 1}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

type mockComponent struct {
	started bool
	stopped bool
}

func (m *mockComponent) Start(_ context.Context) error {
	m.started = true
	return nil
}

func (m *mockComponent) Stop(_ context.Context) error {
	m.stopped = true
	return nil
}

func TestLifecycle_RegisterComponent(t *testing.T) {
	lc := NewLifecycle()
	comp := &mockComponent{}

	lc.RegisterComponent("component", comp)

	_ = lc.Start(context.Background())
	if !comp.started {
		t.Error("component not started")
	}

	_ = lc.Stop(context.Background())
	if !comp.stopped {
		t.Error("component not stopped")
	}
}

type mockCloser struct {
	closed bool
	err    error
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.err
}

func TestLifecycle_RegisterCloser(t *testing.T) {
	lc := NewLifecycle()
	closer := &mockCloser{}

	lc.RegisterCloser("closer", closer)
	_ = lc.Start(context.Background())
	_ = lc.Stop(context.Background())

	if !closer.closed {
		t.Error("closer not closed")
	}
}

func TestLifecycle_RollbackWithStopError(t *testing.T) {
	lc := NewLifecycle()

	lc.Append("first",
		func(_ context.Context) error { return nil },
		func(_ context.Context) error { return errors.New("stop1 failed") })
	lc.OnStart("second", func(_ context.Context) error {
		return errors.New("start2 failed")
	})

	if err := lc.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error")
	}
	if lc.IsStarted() {
		t.Error("lifecycle should not be started after rollback")
	}
}

func TestLifecycle_StopWithError(t *testing.T) {
	lc := NewLifecycle()
	closer := &mockCloser{err: errors.New("stop error")}
	other := &mockCloser{}
	lc.RegisterCloser("other", other)
	lc.RegisterCloser("failing", closer)

	_ = lc.Start(context.Background())
	if err := lc.Stop(context.Background()); err == nil {
		t.Error("Stop() expected error when callback fails")
	}
	if !other.closed {
		t.Error("Stop() should keep going after a failure")
	}
}
