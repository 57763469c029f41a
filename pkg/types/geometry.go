package types

import "fmt"

// Geometry describes how a drive's sectors are divided. DirectorySectors
// counts the superblock sector, so metadata slots occupy sectors
// 1..DirectorySectors-1. The data region is [DataStart, DataEnd).
type Geometry struct {
	DirectorySectors Sector
	DataStart        Sector
	DataEnd          Sector
	SectorSize       Byte
}

const InvalidGeometryErr ConstError = "invalid geometry"

func (g *Geometry) Validate(capacity int) error {
	switch {
	case g.DirectorySectors < 2:
		return fmt.Errorf(
			"%w: directory needs at least one slot sector; found `%d` "+
				"directory sectors",
			InvalidGeometryErr,
			g.DirectorySectors,
		)
	case g.DataStart < g.DirectorySectors:
		return fmt.Errorf(
			"%w: data start `%d` overlaps directory ending at `%d`",
			InvalidGeometryErr,
			g.DataStart,
			g.DirectorySectors,
		)
	case g.DataEnd <= g.DataStart:
		return fmt.Errorf(
			"%w: empty data region [%d, %d)",
			InvalidGeometryErr,
			g.DataStart,
			g.DataEnd,
		)
	case int(g.DataEnd) > capacity:
		return fmt.Errorf(
			"%w: data end `%d` exceeds backend capacity `%d`",
			InvalidGeometryErr,
			g.DataEnd,
			capacity,
		)
	case g.SectorSize < SlotSize || g.SectorSize%SlotSize != 0:
		return fmt.Errorf(
			"%w: sector size `%d` must be a multiple of the slot size `%d`",
			InvalidGeometryErr,
			g.SectorSize,
			SlotSize,
		)
	}
	return nil
}

// SlotsPerSector is the number of metadata slots packed into one sector.
func (g *Geometry) SlotsPerSector() Byte { return g.SectorSize / SlotSize }

// SlotCount is the total number of metadata slots on the drive.
func (g *Geometry) SlotCount() Byte {
	return Byte(g.DirectorySectors-1) * g.SlotsPerSector()
}

// Payload is the number of file bytes one data sector carries.
func (g *Geometry) Payload() Byte { return g.SectorSize - ChainHeaderSize }

// SlotLocation splits a slot offset into its sector and the byte offset
// within that sector.
func (g *Geometry) SlotLocation(offset SlotOffset) (Sector, Byte) {
	return Sector(Byte(offset) / g.SectorSize), Byte(offset) % g.SectorSize
}

func (g *Geometry) SlotOffset(sector Sector, index Byte) SlotOffset {
	return SlotOffset(Byte(sector)*g.SectorSize + index*SlotSize)
}
