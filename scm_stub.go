//go:build !windows

package svcwrap

import "fmt"

func newSCM() (Platform, error) {
	return nil, fmt.Errorf("scm: %w", ErrUnsupported)
}
