package svcwrap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockRecord(name string) ServiceRecord {
	return ServiceRecord{Name: name, DisplayName: name, ExecutablePath: "/usr/bin/helper"}
}

func TestMockDeferredRemoval(t *testing.T) {
	p := NewMockPlatform()
	m, err := p.Connect(ManagerConnect | ManagerCreateService)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	h, err := m.CreateService(mockRecord("svc"), AccessDelete)
	require.NoError(t, err)

	other, err := m.OpenService("svc", AccessQueryStatus)
	require.NoError(t, err)

	require.NoError(t, h.Delete())
	require.NoError(t, h.Close())

	// an open handle keeps the name reserved
	assert.True(t, p.Registered("svc"))
	_, err = m.CreateService(mockRecord("svc"), 0)
	assert.ErrorIs(t, err, ErrMarkedForDelete)
	_, err = m.OpenService("svc", AccessQueryStatus)
	assert.ErrorIs(t, err, ErrMarkedForDelete)

	require.NoError(t, other.Close())
	assert.False(t, p.Registered("svc"))

	h, err = m.CreateService(mockRecord("svc"), 0)
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

func TestMockAccessRights(t *testing.T) {
	p := NewMockPlatform()

	m, err := p.Connect(ManagerConnect)
	require.NoError(t, err)
	_, err = m.CreateService(mockRecord("svc"), AccessStart)
	assert.ErrorIs(t, err, ErrAccessDenied)
	require.NoError(t, m.Close())

	m, err = p.Connect(ManagerConnect | ManagerCreateService)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	h, err := m.CreateService(mockRecord("svc"), AccessChangeConfig)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	assert.NoError(t, h.SetDescription("described"))
	assert.ErrorIs(t, h.Start(), ErrAccessDenied)
	assert.ErrorIs(t, h.Stop(), ErrAccessDenied)
	assert.ErrorIs(t, h.Delete(), ErrAccessDenied)
	_, err = h.Query()
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestMockStateTransitions(t *testing.T) {
	p := NewMockPlatform()
	p.StopPendingQueries = 1

	m, err := p.Connect(ManagerConnect | ManagerCreateService)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	h, err := m.CreateService(mockRecord("svc"), AccessStart|AccessStop|AccessQueryStatus)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	assert.ErrorIs(t, h.Stop(), ErrServiceNotActive)

	require.NoError(t, h.Start("a", "b"))
	assert.ErrorIs(t, h.Start(), ErrServiceRunning)
	assert.Equal(t, []string{"a", "b"}, p.StartArgs("svc"))

	require.NoError(t, h.Stop())
	state, err := h.Query()
	require.NoError(t, err)
	assert.Equal(t, StateStopPending, state)

	state, err = h.Query()
	require.NoError(t, err)
	assert.Equal(t, StateStopped, state)
}

func TestMockFaults(t *testing.T) {
	p := NewMockPlatform()
	boom := errors.New("boom")

	p.InjectFault(OpConnect, boom)
	_, err := p.Connect(ManagerConnect)
	assert.ErrorIs(t, err, boom)

	p.InjectFault(OpConnect, nil)
	m, err := p.Connect(ManagerConnect | ManagerCreateService)
	require.NoError(t, err)

	p.InjectFault(OpCreate, boom)
	_, err = m.CreateService(mockRecord("svc"), 0)
	assert.ErrorIs(t, err, boom)
	assert.False(t, p.Registered("svc"))

	p.ClearFaults()
	h, err := m.CreateService(mockRecord("svc"), 0)
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Close(), errHandleClosed)
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Close(), errHandleClosed)
	assert.Equal(t, 0, p.OpenHandles())
}

func TestMockRecordIsCopied(t *testing.T) {
	p := NewMockPlatform()
	m, err := p.Connect(ManagerConnect | ManagerCreateService)
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	rec := mockRecord("svc")
	rec.Dependencies = []string{"network"}
	h, err := m.CreateService(rec, 0)
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	rec.Dependencies[0] = "changed"
	got, ok := p.Record("svc")
	require.True(t, ok)
	assert.Equal(t, []string{"network"}, got.Dependencies)
}
