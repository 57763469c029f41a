package fs

import (
	"fmt"
	"strings"

	"github.com/weberc2/sectorfs/pkg/backend"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Drive binds a backend to the geometry the filesystem lays over it.
type Drive struct {
	Geometry Geometry
	Backend  backend.Backend
}

func (d *Drive) Validate() error {
	if d.Backend == nil {
		return fmt.Errorf("%w: drive has no backend", InvalidArgumentErr)
	}
	if d.Backend.SectorSize() != d.Geometry.SectorSize {
		return fmt.Errorf(
			"%w: backend sector size `%d` differs from geometry sector "+
				"size `%d`",
			InvalidGeometryErr,
			d.Backend.SectorSize(),
			d.Geometry.SectorSize,
		)
	}
	return d.Geometry.Validate(d.Backend.Capacity())
}

// Read reads within one sector. Sectors at or beyond the end of the data
// region are refused before the backend sees them.
func (d *Drive) Read(sector Sector, offset Byte, p []byte) error {
	if err := d.check(sector); err != nil {
		return fmt.Errorf("reading sector: %w", err)
	}
	if err := d.Backend.ReadSector(sector, offset, p); err != nil {
		return fmt.Errorf("reading sector `%d`: %w: %w", sector, BackendIOErr, err)
	}
	return nil
}

func (d *Drive) Write(sector Sector, offset Byte, p []byte) error {
	if err := d.check(sector); err != nil {
		return fmt.Errorf("writing sector: %w", err)
	}
	if err := d.Backend.WriteSector(sector, offset, p); err != nil {
		return fmt.Errorf("writing sector `%d`: %w: %w", sector, BackendIOErr, err)
	}
	return nil
}

func (d *Drive) Release(sector Sector) error {
	if err := d.check(sector); err != nil {
		return fmt.Errorf("releasing sector: %w", err)
	}
	if err := d.Backend.Release(sector); err != nil {
		return fmt.Errorf("releasing sector `%d`: %w: %w", sector, BackendIOErr, err)
	}
	return nil
}

func (d *Drive) check(sector Sector) error {
	if sector >= d.Geometry.DataEnd {
		return fmt.Errorf(
			"%w: sector `%d`; data region ends at `%d`",
			OutOfRangeErr,
			sector,
			d.Geometry.DataEnd,
		)
	}
	return nil
}

// InData reports whether the sector lies in the drive's data region.
func (d *Drive) InData(sector Sector) bool {
	return sector >= d.Geometry.DataStart && sector < d.Geometry.DataEnd
}

type Registry struct {
	drives [DriveCount]Drive
}

func (r *Registry) Drive(id DriveID) (*Drive, error) {
	if int(id) >= DriveCount {
		return nil, fmt.Errorf("%w: unknown drive `%d`", InvalidArgumentErr, id)
	}
	return &r.drives[id], nil
}

// MaxSectorSize is the largest sector size across the drives.
func (r *Registry) MaxSectorSize() Byte {
	var size Byte
	for i := range r.drives {
		if s := r.drives[i].Geometry.SectorSize; s > size {
			size = s
		}
	}
	return size
}

// DriveIDFromPath routes a name to its drive by prefix.
func DriveIDFromPath(path string) DriveID {
	if strings.HasPrefix(path, SecondaryPrefix) {
		return DriveSecondary
	}
	return DrivePrimary
}
