//go:build windows

package svcwrap

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCM binds to the Windows Service Control Manager. Handles are opened with
// exactly the rights each request needs rather than full access.
type SCM struct {
	// Machine is the computer to connect to; empty means the local computer
	Machine string
}

// NewSCM creates an SCM binding for the local computer
func NewSCM() *SCM {
	return &SCM{}
}

// DefaultPlatform returns the native service manager binding
func DefaultPlatform() Platform {
	return NewSCM()
}

func newSCM() (Platform, error) {
	return NewSCM(), nil
}

// Name returns "scm"
func (p *SCM) Name() string {
	return platformSCMStr
}

// Connect opens the service control manager database
func (p *SCM) Connect(access ManagerAccess) (ServiceManager, error) {
	machine, err := optionalUTF16(p.Machine)
	if err != nil {
		return nil, err
	}

	h, err := windows.OpenSCManager(machine, nil, scmManagerAccess(access))
	if err != nil {
		return nil, translateSCMError(err)
	}
	return &scmManager{m: &mgr.Mgr{Handle: h}}, nil
}

type scmManager struct {
	m *mgr.Mgr
}

func (m *scmManager) CreateService(rec ServiceRecord, access ServiceAccess) (ServiceHandle, error) {
	name, err := syscall.UTF16PtrFromString(rec.Name)
	if err != nil {
		return nil, err
	}
	display, err := optionalUTF16(rec.DisplayName)
	if err != nil {
		return nil, err
	}
	binary, err := syscall.UTF16PtrFromString(commandLine(rec.ExecutablePath, rec.Arguments))
	if err != nil {
		return nil, err
	}
	account, err := optionalUTF16(rec.Account)
	if err != nil {
		return nil, err
	}
	password, err := optionalUTF16(rec.Password)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateService(
		m.m.Handle,
		name,
		display,
		scmServiceAccess(access),
		windows.SERVICE_WIN32_OWN_PROCESS,
		scmStartType(rec.StartType),
		scmErrorControl(rec.ErrorControl),
		binary,
		nil, // load order group
		nil, // tag
		stringBlock(rec.Dependencies),
		account,
		password,
	)
	if err != nil {
		return nil, translateSCMError(err)
	}
	return &scmService{s: &mgr.Service{Name: rec.Name, Handle: h}}, nil
}

func (m *scmManager) OpenService(name string, access ServiceAccess) (ServiceHandle, error) {
	n, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenService(m.m.Handle, n, scmServiceAccess(access))
	if err != nil {
		return nil, translateSCMError(err)
	}
	return &scmService{s: &mgr.Service{Name: name, Handle: h}}, nil
}

func (m *scmManager) Close() error {
	return m.m.Disconnect()
}

type scmService struct {
	s *mgr.Service
}

func (s *scmService) Start(args ...string) error {
	return translateSCMError(s.s.Start(args...))
}

func (s *scmService) Stop() error {
	_, err := s.s.Control(svc.Stop)
	return translateSCMError(err)
}

func (s *scmService) Query() (State, error) {
	st, err := s.s.Query()
	if err != nil {
		return StateUnknown, translateSCMError(err)
	}
	return scmState(st.State), nil
}

func (s *scmService) SetDescription(text string) error {
	d, err := syscall.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	desc := windows.SERVICE_DESCRIPTION{Description: d}
	err = windows.ChangeServiceConfig2(s.s.Handle, windows.SERVICE_CONFIG_DESCRIPTION, (*byte)(unsafe.Pointer(&desc)))
	return translateSCMError(err)
}

func (s *scmService) Delete() error {
	return translateSCMError(s.s.Delete())
}

func (s *scmService) Close() error {
	return s.s.Close()
}

// translateSCMError wraps well-known SCM error codes with the matching
// sentinel, keeping the native error in the chain
func translateSCMError(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, windows.ERROR_SERVICE_EXISTS), errors.Is(err, windows.ERROR_DUPLICATE_SERVICE_NAME):
		sentinel = ErrServiceExists
	case errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST):
		sentinel = ErrServiceNotFound
	case errors.Is(err, windows.ERROR_SERVICE_MARKED_FOR_DELETE):
		sentinel = ErrMarkedForDelete
	case errors.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE):
		sentinel = ErrServiceNotActive
	case errors.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING):
		sentinel = ErrServiceRunning
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		sentinel = ErrAccessDenied
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func scmManagerAccess(a ManagerAccess) uint32 {
	var r uint32
	if a.Has(ManagerConnect) {
		r |= windows.SC_MANAGER_CONNECT
	}
	if a.Has(ManagerCreateService) {
		r |= windows.SC_MANAGER_CREATE_SERVICE
	}
	return r
}

func scmServiceAccess(a ServiceAccess) uint32 {
	var r uint32
	if a.Has(AccessQueryStatus) {
		r |= windows.SERVICE_QUERY_STATUS
	}
	if a.Has(AccessStart) {
		r |= windows.SERVICE_START
	}
	if a.Has(AccessStop) {
		r |= windows.SERVICE_STOP
	}
	if a.Has(AccessDelete) {
		r |= windows.DELETE
	}
	if a.Has(AccessChangeConfig) {
		r |= windows.SERVICE_CHANGE_CONFIG
	}
	return r
}

func scmStartType(t StartType) uint32 {
	switch t {
	case StartAutomatic:
		return windows.SERVICE_AUTO_START
	case StartDisabled:
		return windows.SERVICE_DISABLED
	default:
		return windows.SERVICE_DEMAND_START
	}
}

func scmErrorControl(e ErrorControl) uint32 {
	switch e {
	case ErrorControlIgnore:
		return windows.SERVICE_ERROR_IGNORE
	case ErrorControlSevere:
		return windows.SERVICE_ERROR_SEVERE
	case ErrorControlCritical:
		return windows.SERVICE_ERROR_CRITICAL
	default:
		return windows.SERVICE_ERROR_NORMAL
	}
}

func scmState(s svc.State) State {
	switch s {
	case svc.Stopped:
		return StateStopped
	case svc.StartPending:
		return StateStartPending
	case svc.StopPending:
		return StateStopPending
	case svc.Running:
		return StateRunning
	case svc.ContinuePending:
		return StateContinuePending
	case svc.PausePending:
		return StatePausePending
	case svc.Paused:
		return StatePaused
	default:
		return StateUnknown
	}
}

// commandLine quotes the executable and its stored arguments
func commandLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, syscall.EscapeArg(exe))
	for _, a := range args {
		parts = append(parts, syscall.EscapeArg(a))
	}
	return strings.Join(parts, " ")
}

// stringBlock encodes ss as a double NUL terminated UTF-16 block
func stringBlock(ss []string) *uint16 {
	if len(ss) == 0 {
		return nil
	}
	var b strings.Builder
	for _, s := range ss {
		b.WriteString(s)
		b.WriteByte(0)
	}
	b.WriteByte(0)
	block := utf16.Encode([]rune(b.String()))
	return &block[0]
}

func optionalUTF16(s string) (*uint16, error) {
	if s == "" {
		return nil, nil
	}
	return syscall.UTF16PtrFromString(s)
}
