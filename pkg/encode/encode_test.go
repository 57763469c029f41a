package encode

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func TestSlotLayout(t *testing.T) {
	var b [SlotSize]byte
	EncodeSlot(
		&Slot{
			Name:      "e:log.txt",
			Start:     0x0102,
			Size:      600,
			UID:       0x0A0B0C0D,
			Encrypted: true,
		},
		&b,
	)

	require.Equal(t, "e:log.txt", string(b[:9]))
	require.Zero(t, b[9])
	require.Equal(t, []byte{0x02, 0x01}, b[64:66])
	require.Equal(t, []byte{0x58, 0x02, 0x00, 0x00}, b[66:70])
	require.Equal(t, []byte{0x0D, 0x0C, 0x0B, 0x0A}, b[70:74])
	require.Equal(t, byte(1), b[74])
	require.Equal(t, make([]byte, SlotSize-75), b[75:])
}

func TestSlotNameTruncation(t *testing.T) {
	var b [SlotSize]byte
	for i := range b {
		b[i] = 0xAA
	}
	EncodeSlot(&Slot{Name: strings.Repeat("x", 80)}, &b)

	var slot Slot
	DecodeSlot(&slot, &b)
	if diff := cmp.Diff(
		Slot{Name: strings.Repeat("x", NameCapacity-1)},
		slot,
	); diff != "" {
		t.Fatalf("unexpected slot (-wanted +found):\n%s", diff)
	}
}

func TestZeroedSlotIsFree(t *testing.T) {
	var b [SlotSize]byte
	var slot Slot
	DecodeSlot(&slot, &b)
	require.True(t, slot.Free())
}

func TestChainHeaderLayout(t *testing.T) {
	var b [ChainHeaderSize]byte
	EncodeChainHeader(
		&ChainHeader{Slot: 640, UID: 7, Prev: 40, Next: 41},
		&b,
	)
	require.Equal(
		t,
		[ChainHeaderSize]byte{
			0x80, 0x02, 0x00, 0x00,
			0x07, 0x00, 0x00, 0x00,
			0x28, 0x00,
			0x29, 0x00,
			0x00, 0x00, 0x00, 0x00,
		},
		b,
	)

	var header ChainHeader
	DecodeChainHeader(&header, &b)
	require.Equal(t, ChainHeader{Slot: 640, UID: 7, Prev: 40, Next: 41}, header)
}

func TestSuperblockLayout(t *testing.T) {
	var b [SuperblockSize]byte
	EncodeSuperblock(
		&Superblock{Version: SuperblockVersion, LastUID: 3, FileCount: 2},
		&b,
	)
	require.Equal(
		t,
		[SuperblockSize]byte{0xE7, 0x07, 0, 0, 3, 0, 0, 0, 2, 0, 0, 0},
		b,
	)
}
