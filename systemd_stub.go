//go:build !linux

package svcwrap

import "fmt"

func newSystemd() (Platform, error) {
	return nil, fmt.Errorf("systemd: %w", ErrUnsupported)
}
