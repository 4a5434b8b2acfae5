package svcwrap

import (
	"context"
	"sync"
	"time"
)

// Manager runs controller operations on several descriptors concurrently.
// Each descriptor is handled independently: a failure on one neither stops
// nor rolls back the others, and all failures are returned in a MultiError.
type Manager struct {
	// Wrapper performs the per-descriptor operations
	Wrapper Wrapper
	// Concurrency is the maximum number of concurrent operations
	Concurrency int
	// Timeout is the per-operation timeout
	Timeout time.Duration
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithConcurrency sets the maximum number of concurrent operations
func WithConcurrency(n int) ManagerOption {
	return func(m *Manager) {
		m.Concurrency = n
	}
}

// WithTimeout sets the per-operation timeout
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.Timeout = d
	}
}

// NewManager creates a Manager that runs operations through w
func NewManager(w Wrapper, opts ...ManagerOption) *Manager {
	m := &Manager{
		Wrapper:     w,
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.Concurrency < 1 {
		m.Concurrency = 1
	}

	return m
}

func (m *Manager) execute(ctx context.Context, ds []Descriptor, op func(context.Context, Descriptor) error) error {
	if len(ds) == 0 {
		return nil
	}

	// Semaphore for concurrency control
	sem := make(chan struct{}, m.Concurrency)

	var wg sync.WaitGroup
	var mu sync.Mutex
	merr := &MultiError{}

	for _, d := range ds {
		wg.Add(1)
		go func(d Descriptor) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				merr.Add(ctx.Err())
				mu.Unlock()
				return
			}

			opCtx := ctx
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				opCtx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}

			if err := op(opCtx, d); err != nil {
				mu.Lock()
				merr.Add(err)
				mu.Unlock()
			}
		}(d)
	}

	wg.Wait()

	return merr.Err()
}

// Create registers and starts every descriptor
func (m *Manager) Create(ctx context.Context, ds ...Descriptor) error {
	return m.execute(ctx, ds, m.Wrapper.Create)
}

// Delete removes every descriptor's registration
func (m *Manager) Delete(ctx context.Context, ds ...Descriptor) error {
	return m.execute(ctx, ds, m.Wrapper.Delete)
}

// Status returns the state of every descriptor, keyed by service name.
// Descriptors whose query failed are absent from the map.
func (m *Manager) Status(ctx context.Context, ds ...Descriptor) (map[string]State, error) {
	var mu sync.Mutex
	results := make(map[string]State, len(ds))

	err := m.execute(ctx, ds, func(ctx context.Context, d Descriptor) error {
		state, err := m.Wrapper.Status(ctx, d)
		if err != nil {
			return err
		}
		mu.Lock()
		results[d.Name()] = state
		mu.Unlock()
		return nil
	})

	return results, err
}
