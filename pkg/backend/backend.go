// Package backend defines the contract between the filesystem core and the
// raw sector stores beneath it.
package backend

import (
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Backend is a raw sector store. Offsets and lengths passed to ReadSector
// and WriteSector stay within one sector.
type Backend interface {
	// Init prepares the store for use. With format set the store is erased.
	Init(format bool) error
	ReadSector(sector Sector, offset Byte, p []byte) error
	WriteSector(sector Sector, offset Byte, p []byte) error
	// Release tells the store the sector's contents are no longer needed.
	Release(sector Sector) error
	// Capacity is the number of addressable sectors.
	Capacity() int
	SectorSize() Byte
}

// Defragmenter is implemented by stores that accumulate stale pages and can
// reclaim them.
type Defragmenter interface {
	UsedPages() int
	TotalPages() int
	Defrag() error
}

const OutOfBoundsErr ConstError = "transfer out of sector bounds"
