package svcwrap

import (
	"os"
	"path/filepath"
	"slices"
)

// Descriptor identifies what is run as a service: a registry name, the
// canonical path of the target executable and its launch arguments.
// The zero value is not usable; construct one with Build.
type Descriptor struct {
	name string
	path string
	args []string
}

// Build returns a Descriptor for the executable at path. The path is made
// absolute against the working directory and its symlinks are resolved, so
// the launch command does not depend on where the caller runs later.
func Build(name, path string, args []string) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, &OpError{Kind: KindConfig, Op: OpBuild, Path: path, Err: ErrEmptyName}
	}

	canonical, err := canonicalize(path)
	if err != nil {
		return Descriptor{}, ioError(OpBuild, name, path, err)
	}

	return Descriptor{
		name: name,
		path: canonical,
		args: slices.Clone(args),
	}, nil
}

// Name returns the service name
func (d Descriptor) Name() string {
	return d.name
}

// Path returns the canonical path of the target executable
func (d Descriptor) Path() string {
	return d.path
}

// Args returns a copy of the launch arguments
func (d Descriptor) Args() []string {
	return slices.Clone(d.args)
}

// launchArgs is the start request argument list: target path, then args
func (d Descriptor) launchArgs() []string {
	return append([]string{d.path}, d.args...)
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}
