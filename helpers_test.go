package svcwrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// SkipIfShort skips the test if running in short mode
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping in short mode: %s", reason)
	}
}

// uniqueName returns a service name no other test uses
func uniqueName(prefix string) string {
	return prefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// writeExecutable creates an empty file standing in for an executable
func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

type testEnv struct {
	platform *MockPlatform
	ctrl     *Controller
	helper   string
	target   string
	logger   *logrus.Logger
	logs     *test.Hook
}

// newTestEnv creates a controller bound to a fresh MockPlatform with a
// helper and a target executable in a temp dir
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	dir := t.TempDir()
	helper := writeExecutable(t, dir, "svcwrap-helper")
	target := writeExecutable(t, dir, "tcp_echo")

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	p := NewMockPlatform()
	cfg := DefaultConfig()
	cfg.HelperPath = helper
	cfg.StopGrace = 5 * time.Millisecond

	all := append([]Option{WithPlatform(p), WithConfig(cfg), WithLogger(logger)}, opts...)
	return &testEnv{
		platform: p,
		ctrl:     New(all...),
		helper:   canonicalPath(t, helper),
		target:   canonicalPath(t, target),
		logger:   logger,
		logs:     hook,
	}
}

// reconfigure replaces the controller with one using the modified config
func (e *testEnv) reconfigure(modify func(*Config), opts ...Option) {
	cfg := e.ctrl.Config()
	modify(&cfg)
	all := append([]Option{WithPlatform(e.platform), WithConfig(cfg), WithLogger(e.logger)}, opts...)
	e.ctrl = New(all...)
}

func (e *testEnv) descriptor(t *testing.T, name string, args ...string) Descriptor {
	t.Helper()
	d, err := Build(name, e.target, args)
	require.NoError(t, err)
	return d
}

func canonicalPath(t *testing.T, path string) string {
	t.Helper()
	p, err := canonicalize(path)
	require.NoError(t, err)
	return p
}
