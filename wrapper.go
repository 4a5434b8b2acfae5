package svcwrap

import (
	"context"
)

// Wrapper is the interface service wrappers implement. It provides the
// lifecycle of one registration per Descriptor, independent of the host
// service manager behind it.
type Wrapper interface {
	// Create registers and starts the service
	Create(ctx context.Context, d Descriptor) error
	// Delete stops the service if needed and removes the registration
	Delete(ctx context.Context, d Descriptor) error
	// Status returns the state reported by the service manager
	Status(ctx context.Context, d Descriptor) (State, error)
}
