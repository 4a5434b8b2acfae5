package svcwrap

import (
	"fmt"
)

// PlatformType identifies a service manager binding
type PlatformType int

const (
	// PlatformUnknown represents an unknown service manager
	PlatformUnknown PlatformType = iota
	// PlatformSCM is the Windows Service Control Manager
	PlatformSCM
	// PlatformSystemd is systemd, driven through systemctl
	PlatformSystemd
	// PlatformMock is the in-memory MockPlatform
	PlatformMock
)

// PlatformType string constants
const (
	platformUnknownStr = "unknown"
	platformSCMStr     = "scm"
	platformSystemdStr = "systemd"
	platformMockStr    = "mock"
)

// String returns the string representation of PlatformType
func (pt PlatformType) String() string {
	switch pt {
	case PlatformSCM:
		return platformSCMStr
	case PlatformSystemd:
		return platformSystemdStr
	case PlatformMock:
		return platformMockStr
	case PlatformUnknown:
		fallthrough
	default:
		return platformUnknownStr
	}
}

// ParsePlatformType maps a name as returned by String back to a PlatformType
func ParsePlatformType(s string) (PlatformType, error) {
	switch s {
	case platformSCMStr:
		return PlatformSCM, nil
	case platformSystemdStr:
		return PlatformSystemd, nil
	case platformMockStr:
		return PlatformMock, nil
	default:
		return PlatformUnknown, fmt.Errorf("unknown platform type: %q", s)
	}
}

// NewPlatform returns the binding for t. Bindings that are not available on
// the running OS return an error wrapping ErrUnsupported.
func NewPlatform(t PlatformType) (Platform, error) {
	switch t {
	case PlatformSCM:
		return newSCM()
	case PlatformSystemd:
		return newSystemd()
	case PlatformMock:
		return NewMockPlatform(), nil
	default:
		return nil, fmt.Errorf("unsupported platform type: %v", t)
	}
}
