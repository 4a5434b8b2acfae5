package svcwrap

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// errHandleClosed is returned for requests on a closed mock handle
var errHandleClosed = errors.New("svcwrap: handle closed")

// MockPlatform is an in-memory service manager for tests. It enforces the
// registry rules of a real one: one registration per name, access rights
// per handle, and deferred removal of deleted entries until their last
// handle is closed. Nothing is ever executed unless OnStart does it.
type MockPlatform struct {
	// OnStart, if set, runs when a start request is accepted, with the
	// start arguments; an error fails the start and leaves the service stopped
	OnStart func(name string, args []string) error

	// OnStop, if set, runs when a stop request is accepted
	OnStop func(name string) error

	// StopPendingQueries is how many queries after a stop report
	// StateStopPending before the service reports StateStopped
	StopPendingQueries int

	mu       sync.Mutex
	entries  map[string]*mockEntry
	faults   map[Operation]error
	calls    []MockCall
	sessions int
}

// MockCall records one request made against a MockPlatform
type MockCall struct {
	// Op is the request kind
	Op Operation
	// Name is the service name; empty for connect
	Name string
	// ManagerAccess is set for connect
	ManagerAccess ManagerAccess
	// Access is set for create and open
	Access ServiceAccess
	// Args is set for start
	Args []string
}

type mockEntry struct {
	record      ServiceRecord
	description string
	state       State
	startArgs   []string
	pending     int
	deleted     bool
	handles     int
}

var _ Platform = (*MockPlatform)(nil)

// NewMockPlatform creates an empty MockPlatform
func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		entries: make(map[string]*mockEntry),
		faults:  make(map[Operation]error),
	}
}

// Name returns "mock"
func (p *MockPlatform) Name() string {
	return platformMockStr
}

// InjectFault makes every request of kind op fail with err until cleared.
// A nil err clears the fault.
func (p *MockPlatform) InjectFault(op Operation, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err == nil {
		delete(p.faults, op)
		return
	}
	p.faults[op] = err
}

// ClearFaults removes all injected faults
func (p *MockPlatform) ClearFaults() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.faults = make(map[Operation]error)
}

// Registered reports whether name holds a registration, including one that
// is marked for deletion
func (p *MockPlatform) Registered(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.entries[name]
	return ok
}

// Names returns the registered names in order
func (p *MockPlatform) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.entries))
	for n := range p.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Record returns the registration request stored for name
func (p *MockPlatform) Record(name string) (ServiceRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[name]
	if !ok {
		return ServiceRecord{}, false
	}
	return e.record, true
}

// Description returns the description attached to name
func (p *MockPlatform) Description(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[name]; ok {
		return e.description
	}
	return ""
}

// State returns the current state of name without consuming pending queries
func (p *MockPlatform) State(name string) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[name]; ok {
		return e.state
	}
	return StateUnknown
}

// StartArgs returns the arguments of the last accepted start request
func (p *MockPlatform) StartArgs(name string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e, ok := p.entries[name]; ok {
		return slices.Clone(e.startArgs)
	}
	return nil
}

// OpenHandles returns the number of service handles and manager sessions
// that have not been closed
func (p *MockPlatform) OpenHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.sessions
	for _, e := range p.entries {
		n += e.handles
	}
	return n
}

// Calls returns the requests made so far
func (p *MockPlatform) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.calls)
}

// Connect opens a session
func (p *MockPlatform) Connect(access ManagerAccess) (ServiceManager, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, MockCall{Op: OpConnect, ManagerAccess: access})
	if err := p.faults[OpConnect]; err != nil {
		return nil, err
	}
	p.sessions++
	return &mockManager{p: p, access: access}, nil
}

// record appends a call and returns the injected fault for op; p.mu is held
func (p *MockPlatform) record(c MockCall) error {
	p.calls = append(p.calls, c)
	return p.faults[c.Op]
}

type mockManager struct {
	p      *MockPlatform
	access ManagerAccess
	closed bool
}

func (m *mockManager) CreateService(rec ServiceRecord, access ServiceAccess) (ServiceHandle, error) {
	p := m.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.record(MockCall{Op: OpCreate, Name: rec.Name, Access: access}); err != nil {
		return nil, err
	}
	if m.closed {
		return nil, errHandleClosed
	}
	if !m.access.Has(ManagerCreateService) {
		return nil, fmt.Errorf("%w: session lacks create rights", ErrAccessDenied)
	}
	if e, ok := p.entries[rec.Name]; ok {
		if e.deleted {
			return nil, fmt.Errorf("%w: %q", ErrMarkedForDelete, rec.Name)
		}
		return nil, fmt.Errorf("%w: %q", ErrServiceExists, rec.Name)
	}

	rec.Arguments = slices.Clone(rec.Arguments)
	rec.Dependencies = slices.Clone(rec.Dependencies)
	p.entries[rec.Name] = &mockEntry{record: rec, state: StateStopped, handles: 1}
	return &mockHandle{p: p, name: rec.Name, access: access}, nil
}

func (m *mockManager) OpenService(name string, access ServiceAccess) (ServiceHandle, error) {
	p := m.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.record(MockCall{Op: OpOpen, Name: name, Access: access}); err != nil {
		return nil, err
	}
	if m.closed {
		return nil, errHandleClosed
	}
	e, ok := p.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrServiceNotFound, name)
	}
	if e.deleted {
		return nil, fmt.Errorf("%w: %q", ErrMarkedForDelete, name)
	}

	e.handles++
	return &mockHandle{p: p, name: name, access: access}, nil
}

func (m *mockManager) Close() error {
	m.p.mu.Lock()
	defer m.p.mu.Unlock()

	if m.closed {
		return errHandleClosed
	}
	m.closed = true
	m.p.sessions--
	return nil
}

type mockHandle struct {
	p      *MockPlatform
	name   string
	access ServiceAccess
	closed bool
}

// entry returns the handle's entry after the common checks; p.mu is held
func (h *mockHandle) entry(c MockCall, want ServiceAccess) (*mockEntry, error) {
	c.Name = h.name
	if err := h.p.record(c); err != nil {
		return nil, err
	}
	if h.closed {
		return nil, errHandleClosed
	}
	if !h.access.Has(want) {
		return nil, fmt.Errorf("%w: %s on %q", ErrAccessDenied, c.Op, h.name)
	}
	return h.p.entries[h.name], nil
}

func (h *mockHandle) Start(args ...string) error {
	p := h.p
	p.mu.Lock()
	e, err := h.entry(MockCall{Op: OpStart, Args: slices.Clone(args)}, AccessStart)
	if err == nil {
		switch {
		case e.deleted:
			err = fmt.Errorf("%w: %q", ErrMarkedForDelete, h.name)
		case e.state != StateStopped:
			err = fmt.Errorf("%w: %q", ErrServiceRunning, h.name)
		default:
			e.state = StateStartPending
		}
	}
	hook := p.OnStart
	p.mu.Unlock()

	if err != nil {
		return err
	}

	if hook != nil {
		err = hook(h.name, slices.Clone(args))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		e.state = StateStopped
		return err
	}
	e.state = StateRunning
	e.startArgs = slices.Clone(args)
	return nil
}

func (h *mockHandle) Stop() error {
	p := h.p
	p.mu.Lock()
	e, err := h.entry(MockCall{Op: OpStop}, AccessStop)
	if err == nil && e.state == StateStopped {
		err = fmt.Errorf("%w: %q", ErrServiceNotActive, h.name)
	}
	hook := p.OnStop
	p.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		if err := hook(h.name); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StopPendingQueries > 0 {
		e.state = StateStopPending
		e.pending = p.StopPendingQueries
	} else {
		e.state = StateStopped
	}
	return nil
}

func (h *mockHandle) Query() (State, error) {
	p := h.p
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := h.entry(MockCall{Op: OpQuery}, AccessQueryStatus)
	if err != nil {
		return StateUnknown, err
	}
	if e.state == StateStopPending {
		if e.pending > 0 {
			e.pending--
			return StateStopPending, nil
		}
		e.state = StateStopped
	}
	return e.state, nil
}

func (h *mockHandle) SetDescription(text string) error {
	p := h.p
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := h.entry(MockCall{Op: OpDescribe}, AccessChangeConfig)
	if err != nil {
		return err
	}
	e.description = text
	return nil
}

func (h *mockHandle) Delete() error {
	p := h.p
	p.mu.Lock()
	defer p.mu.Unlock()

	e, err := h.entry(MockCall{Op: OpDelete}, AccessDelete)
	if err != nil {
		return err
	}
	if e.deleted {
		return fmt.Errorf("%w: %q", ErrMarkedForDelete, h.name)
	}
	e.deleted = true
	return nil
}

func (h *mockHandle) Close() error {
	p := h.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if h.closed {
		return errHandleClosed
	}
	h.closed = true

	e := p.entries[h.name]
	e.handles--
	if e.deleted && e.handles == 0 {
		delete(p.entries, h.name)
	}
	return nil
}
