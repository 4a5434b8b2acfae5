//go:build !windows && !linux

package svcwrap

import (
	"fmt"
	"runtime"
)

// DefaultPlatform returns a binding whose Connect always fails with
// ErrUnsupported; no native service manager is bound on this OS
func DefaultPlatform() Platform {
	return unsupportedPlatform{}
}

type unsupportedPlatform struct{}

func (unsupportedPlatform) Name() string {
	return platformUnknownStr
}

func (unsupportedPlatform) Connect(ManagerAccess) (ServiceManager, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, ErrUnsupported)
}
