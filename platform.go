package svcwrap

// ManagerAccess is the set of rights requested when connecting to the
// service manager
type ManagerAccess uint32

const (
	// ManagerConnect allows opening existing services
	ManagerConnect ManagerAccess = 1 << iota
	// ManagerCreateService allows registering new services
	ManagerCreateService
)

// ServiceAccess is the set of rights requested on a service handle
type ServiceAccess uint32

const (
	// AccessQueryStatus allows Query
	AccessQueryStatus ServiceAccess = 1 << iota
	// AccessStart allows Start
	AccessStart
	// AccessStop allows Stop
	AccessStop
	// AccessDelete allows Delete
	AccessDelete
	// AccessChangeConfig allows SetDescription
	AccessChangeConfig
)

// Has reports whether all rights in want are present
func (a ServiceAccess) Has(want ServiceAccess) bool {
	return a&want == want
}

// Has reports whether all rights in want are present
func (a ManagerAccess) Has(want ManagerAccess) bool {
	return a&want == want
}

// StartType controls when the service manager starts a service
type StartType int

const (
	// StartOnDemand starts the service only on an explicit request
	StartOnDemand StartType = iota
	// StartAutomatic starts the service at boot
	StartAutomatic
	// StartDisabled prevents the service from starting
	StartDisabled
)

// ErrorControl is the severity the service manager assigns to start failures
type ErrorControl int

const (
	// ErrorControlNormal logs the failure and continues
	ErrorControlNormal ErrorControl = iota
	// ErrorControlIgnore ignores the failure
	ErrorControlIgnore
	// ErrorControlSevere switches to the last known good configuration
	ErrorControlSevere
	// ErrorControlCritical fails the boot
	ErrorControlCritical
)

// ServiceRecord is a registration request
type ServiceRecord struct {
	// Name is the registry key
	Name string
	// DisplayName is shown by service management tools
	DisplayName string
	// StartType controls automatic start
	StartType StartType
	// ErrorControl sets start failure severity
	ErrorControl ErrorControl
	// ExecutablePath is what the service manager launches
	ExecutablePath string
	// Arguments are stored in the registration and passed on every start
	Arguments []string
	// Dependencies are services that must start first
	Dependencies []string
	// Account runs the service; empty selects the platform default
	Account string
	// Password for Account
	Password string
}

// State is the state reported by the service manager
type State int

const (
	// StateUnknown is reported for states the platform does not define
	StateUnknown State = iota
	// StateStopped means no process is running
	StateStopped
	// StateStartPending means the service is starting
	StateStartPending
	// StateStopPending means the service is stopping
	StateStopPending
	// StateRunning means the service is running
	StateRunning
	// StateContinuePending means the service is resuming from pause
	StateContinuePending
	// StatePausePending means the service is pausing
	StatePausePending
	// StatePaused means the service is paused
	StatePaused
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStartPending:
		return "start-pending"
	case StateStopPending:
		return "stop-pending"
	case StateRunning:
		return "running"
	case StateContinuePending:
		return "continue-pending"
	case StatePausePending:
		return "pause-pending"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Platform connects to a host service manager
type Platform interface {
	// Name identifies the platform variant
	Name() string
	// Connect opens a session with the requested rights
	Connect(access ManagerAccess) (ServiceManager, error)
}

// ServiceManager is a connected session with the host service manager.
// Errors returned for a duplicate or missing registration wrap
// ErrServiceExists and ErrServiceNotFound respectively.
type ServiceManager interface {
	// CreateService registers a new service and returns a handle with access
	CreateService(rec ServiceRecord, access ServiceAccess) (ServiceHandle, error)
	// OpenService opens an existing registration
	OpenService(name string, access ServiceAccess) (ServiceHandle, error)
	// Close releases the session
	Close() error
}

// ServiceHandle is an open handle on one registration
type ServiceHandle interface {
	// Start requests a start with the given launch arguments
	Start(args ...string) error
	// Stop requests a stop; it does not wait for the process to exit
	Stop() error
	// Query returns the current state
	Query() (State, error)
	// SetDescription attaches a human-readable description
	SetDescription(text string) error
	// Delete marks the registration for removal
	Delete() error
	// Close releases the handle
	Close() error
}
