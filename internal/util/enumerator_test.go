package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func withPorts(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	orig := listPorts
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { listPorts = orig })
}

func TestFindPort(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10C4", PID: "EA60"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0483", PID: "5740"},
	}, nil)

	path, err := FindPort(NanoVNAVendorID, NanoVNAProductID)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", path)
}

func TestFindPort_CaseInsensitive(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "COM7", IsUSB: true, VID: "0483", PID: "5740"},
	}, nil)

	path, err := FindPort("0483", "5740")
	require.NoError(t, err)
	assert.Equal(t, "COM7", path)

	withPorts(t, []*enumerator.PortDetails{
		{Name: "COM8", IsUSB: true, VID: "1A86", PID: "7523"},
	}, nil)
	_, err = FindPort("1a86", "7523")
	require.NoError(t, err)
}

func TestFindPort_NotFound(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{{Name: "/dev/ttyS0"}}, nil)

	_, err := FindPort(NanoVNAVendorID, NanoVNAProductID)
	assert.ErrorIs(t, err, ErrPortNotFound)
}

func TestFindPort_EnumerationError(t *testing.T) {
	boom := errors.New("boom")
	withPorts(t, nil, boom)

	_, err := FindPort(NanoVNAVendorID, NanoVNAProductID)
	assert.ErrorIs(t, err, boom)
}

func TestListPorts(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0483", PID: "5740"},
	}, nil)

	ports, err := ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyS0", "/dev/ttyACM0 0483:5740"}, ports)
}
