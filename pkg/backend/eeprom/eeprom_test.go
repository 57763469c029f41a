package eeprom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weberc2/sectorfs/pkg/backend"
	"github.com/weberc2/sectorfs/pkg/io"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// recordingVolume remembers the extent of every transfer.
type recordingVolume struct {
	*io.Buffer
	transfers [][2]Byte
}

func (v *recordingVolume) ReadAt(offset Byte, p []byte) error {
	v.transfers = append(v.transfers, [2]Byte{offset, Byte(len(p))})
	return v.Buffer.ReadAt(offset, p)
}

func (v *recordingVolume) WriteAt(offset Byte, p []byte) error {
	v.transfers = append(v.transfers, [2]Byte{offset, Byte(len(p))})
	return v.Buffer.WriteAt(offset, p)
}

func TestPageSplitting(t *testing.T) {
	volume := &recordingVolume{Buffer: io.NewBuffer(make([]byte, 4*Kibibyte))}
	device, err := New(volume, 256, 512)
	require.NoError(t, err)
	require.Equal(t, 8, device.Capacity())

	data := bytes.Repeat([]byte{0x5A}, 300)
	require.NoError(t, device.WriteSector(2, 100, data))
	require.Equal(
		t,
		[][2]Byte{{1124, 156}, {1280, 144}},
		volume.transfers,
	)

	found := make([]byte, 300)
	require.NoError(t, device.ReadSector(2, 100, found))
	require.Equal(t, data, found)
}

func TestBounds(t *testing.T) {
	device, err := New(io.NewBuffer(make([]byte, 4*Kibibyte)), 256, 512)
	require.NoError(t, err)

	require.ErrorIs(
		t,
		device.ReadSector(8, 0, make([]byte, 1)),
		backend.OutOfBoundsErr,
	)
	require.ErrorIs(
		t,
		device.WriteSector(1, 500, make([]byte, 13)),
		backend.OutOfBoundsErr,
	)
	require.NoError(t, device.WriteSector(1, 500, make([]byte, 12)))
}

func TestFormatErases(t *testing.T) {
	buffer := io.NewBuffer(make([]byte, 1*Kibibyte))
	device, err := New(buffer, 256, 512)
	require.NoError(t, err)
	require.NoError(t, device.Init(true))
	require.Equal(t, bytes.Repeat([]byte{0xFF}, 1024), buffer.Bytes())
}
