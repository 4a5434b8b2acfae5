package svcwrap

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func testDescriptors(t *testing.T, e *testEnv, n int) []Descriptor {
	t.Helper()
	ds := make([]Descriptor, n)
	for i := range ds {
		ds[i] = e.descriptor(t, fmt.Sprintf("service%d", i), "-p", fmt.Sprint(31000+i))
	}
	return ds
}

func TestManagerCreateDeleteStatus(t *testing.T) {
	e := newTestEnv(t)
	ds := testDescriptors(t, e, 3)

	mgr := NewManager(e.ctrl,
		WithConcurrency(2),
		WithTimeout(1*time.Second),
	)

	ctx := context.Background()
	if err := mgr.Create(ctx, ds...); err != nil {
		t.Fatal(err)
	}

	statuses, err := mgr.Status(ctx, ds...)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 3", len(statuses))
	}
	for _, d := range ds {
		if s, ok := statuses[d.Name()]; !ok {
			t.Errorf("missing status for %s", d.Name())
		} else if s != StateRunning {
			t.Errorf("%s state = %v, want running", d.Name(), s)
		}
	}

	if err := mgr.Delete(ctx, ds...); err != nil {
		t.Fatal(err)
	}
	if names := e.platform.Names(); len(names) != 0 {
		t.Errorf("registrations left after delete: %v", names)
	}
}

func TestManagerEmptyServices(t *testing.T) {
	e := newTestEnv(t)
	mgr := NewManager(e.ctrl)

	ctx := context.Background()

	statuses, err := mgr.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 0 {
		t.Errorf("got %d statuses, want 0", len(statuses))
	}

	if err := mgr.Create(ctx); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Delete(ctx); err != nil {
		t.Fatal(err)
	}

	if calls := e.platform.Calls(); len(calls) != 0 {
		t.Errorf("got %d platform calls, want 0", len(calls))
	}
}

func TestManagerCollectsFailures(t *testing.T) {
	e := newTestEnv(t)
	ds := testDescriptors(t, e, 3)
	ctx := context.Background()

	// service1 already exists, so only its create fails
	if err := e.ctrl.Create(ctx, ds[1]); err != nil {
		t.Fatal(err)
	}

	mgr := NewManager(e.ctrl)
	err := mgr.Create(ctx, ds...)
	if err == nil {
		t.Fatal("expected an error for the duplicate name")
	}

	var merr *MultiError
	if !errors.As(err, &merr) {
		t.Fatalf("error %T is not a MultiError", err)
	}
	if len(merr.Errors) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(merr.Errors), merr.Errors)
	}
	if !errors.Is(err, ErrServiceExists) {
		t.Errorf("error %v does not wrap ErrServiceExists", err)
	}

	// the other descriptors are not rolled back
	for _, d := range []Descriptor{ds[0], ds[2]} {
		if e.platform.State(d.Name()) != StateRunning {
			t.Errorf("%s was not started", d.Name())
		}
	}

	statuses, err := mgr.Status(ctx, append(ds, e.descriptor(t, "missing"))...)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("status error = %v, want ErrServiceNotFound", err)
	}
	if len(statuses) != 3 {
		t.Errorf("got %d statuses, want 3", len(statuses))
	}
}

// countingWrapper records the peak number of concurrent calls
type countingWrapper struct {
	active atomic.Int32
	peak   atomic.Int32
}

func (w *countingWrapper) enter() {
	n := w.active.Add(1)
	for {
		p := w.peak.Load()
		if n <= p || w.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	w.active.Add(-1)
}

func (w *countingWrapper) Create(context.Context, Descriptor) error {
	w.enter()
	return nil
}

func (w *countingWrapper) Delete(context.Context, Descriptor) error {
	w.enter()
	return nil
}

func (w *countingWrapper) Status(context.Context, Descriptor) (State, error) {
	w.enter()
	return StateRunning, nil
}

func TestManagerConcurrency(t *testing.T) {
	e := newTestEnv(t)
	ds := testDescriptors(t, e, 10)

	w := &countingWrapper{}
	mgr := NewManager(w, WithConcurrency(3))

	start := time.Now()
	ctx := context.Background()
	statuses, err := mgr.Status(ctx, ds...)
	if err != nil {
		t.Fatal(err)
	}
	duration := time.Since(start)

	if len(statuses) != 10 {
		t.Fatalf("got %d statuses, want 10", len(statuses))
	}
	if peak := w.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}

	t.Logf("Processed 10 services with concurrency 3 in %v", duration)
}

func TestManagerCanceled(t *testing.T) {
	e := newTestEnv(t)
	ds := testDescriptors(t, e, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewManager(e.ctrl).Create(ctx, ds...)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if names := e.platform.Names(); len(names) != 0 {
		t.Errorf("registered %v after cancel", names)
	}
}

func TestNewManagerDefaults(t *testing.T) {
	mgr := NewManager(nil, WithConcurrency(0))

	if mgr.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", mgr.Concurrency)
	}
	if mgr.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", mgr.Timeout)
	}
}
