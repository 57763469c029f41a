package alloc

import (
	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const bitsPerByte = 8

// Bitmap tracks sector usage, one bit per absolute sector number. Bit
// `sector % 8` of byte `sector / 8` is set when the sector is in use.
type Bitmap struct {
	bytes []byte
}

func New(sectors int) Bitmap {
	return Bitmap{make([]byte, math.DivRoundUp(sectors, bitsPerByte))}
}

// Len is the number of sectors the bitmap can describe.
func (bm Bitmap) Len() int { return len(bm.bytes) * bitsPerByte }

func (bm Bitmap) Used(sector Sector) bool {
	return bm.bytes[sector/bitsPerByte]&bitMask(sector) != 0
}

func (bm Bitmap) Reserve(sector Sector) {
	bm.bytes[sector/bitsPerByte] |= bitMask(sector)
}

func (bm Bitmap) Free(sector Sector) {
	bm.bytes[sector/bitsPerByte] &^= bitMask(sector)
}

// Alloc reserves and returns the lowest free sector in [start, end).
func (bm Bitmap) Alloc(start, end Sector) (Sector, bool) {
	for i := int(start); i < int(end); i++ {
		// skip whole bytes that are fully used
		if i%bitsPerByte == 0 && bm.bytes[i/bitsPerByte] == 0xFF {
			i += bitsPerByte - 1
			continue
		}
		if sector := Sector(i); !bm.Used(sector) {
			bm.Reserve(sector)
			return sector, true
		}
	}
	return SectorNil, false
}

// Count returns the number of used sectors in [start, end).
func (bm Bitmap) Count(start, end Sector) int {
	var n int
	for i := int(start); i < int(end); i++ {
		if bm.Used(Sector(i)) {
			n++
		}
	}
	return n
}

func (bm Bitmap) Reset() {
	for i := range bm.bytes {
		bm.bytes[i] = 0
	}
}

func (bm Bitmap) Bytes() []byte { return bm.bytes }

func bitMask(sector Sector) byte {
	return 1 << (sector % bitsPerByte)
}
