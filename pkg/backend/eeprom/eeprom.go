// Package eeprom implements a page-addressed EEPROM-like sector store.
// Sectors are laid out contiguously; a transfer is split so that no single
// device access crosses a page boundary.
package eeprom

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/backend"
	"github.com/weberc2/sectorfs/pkg/io"
	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

const DefaultPageSize Byte = 256

type Device struct {
	volume     io.Volume
	pageSize   Byte
	sectorSize Byte
}

var _ backend.Backend = (*Device)(nil)

func New(volume io.Volume, pageSize, sectorSize Byte) (*Device, error) {
	if pageSize <= 0 || sectorSize <= 0 {
		return nil, fmt.Errorf(
			"creating eeprom device: page size `%d` and sector size `%d` "+
				"must be positive",
			pageSize,
			sectorSize,
		)
	}
	if volume.Size() < sectorSize {
		return nil, fmt.Errorf(
			"creating eeprom device: volume of `%d` bytes holds no sectors",
			volume.Size(),
		)
	}
	return &Device{volume: volume, pageSize: pageSize, sectorSize: sectorSize}, nil
}

func (d *Device) Capacity() int { return int(d.volume.Size() / d.sectorSize) }

func (d *Device) SectorSize() Byte { return d.sectorSize }

func (d *Device) Init(format bool) error {
	if !format {
		return nil
	}
	page := make([]byte, d.pageSize)
	for i := range page {
		page[i] = 0xFF
	}
	size := d.volume.Size()
	for addr := Byte(0); addr < size; addr += d.pageSize {
		n := math.Min(d.pageSize, size-addr)
		if err := d.volume.WriteAt(addr, page[:n]); err != nil {
			return fmt.Errorf("erasing page at `%d`: %w", addr, err)
		}
	}
	return nil
}

func (d *Device) ReadSector(sector Sector, offset Byte, p []byte) error {
	addr, err := d.address(sector, offset, p)
	if err != nil {
		return fmt.Errorf("reading sector `%d`: %w", sector, err)
	}
	return d.pages(addr, p, d.volume.ReadAt)
}

func (d *Device) WriteSector(sector Sector, offset Byte, p []byte) error {
	addr, err := d.address(sector, offset, p)
	if err != nil {
		return fmt.Errorf("writing sector `%d`: %w", sector, err)
	}
	return d.pages(addr, p, d.volume.WriteAt)
}

// Release is a no-op; EEPROM cells are rewritten in place.
func (d *Device) Release(sector Sector) error { return nil }

func (d *Device) address(sector Sector, offset Byte, p []byte) (Byte, error) {
	if int(sector) >= d.Capacity() {
		return 0, fmt.Errorf(
			"%w: sector `%d` beyond capacity `%d`",
			backend.OutOfBoundsErr,
			sector,
			d.Capacity(),
		)
	}
	if offset < 0 || offset+Byte(len(p)) > d.sectorSize {
		return 0, fmt.Errorf(
			"%w: `%d` bytes at offset `%d` in a `%d` byte sector",
			backend.OutOfBoundsErr,
			len(p),
			offset,
			d.sectorSize,
		)
	}
	return Byte(sector)*d.sectorSize + offset, nil
}

func (d *Device) pages(
	addr Byte,
	p []byte,
	transfer func(Byte, []byte) error,
) error {
	for len(p) > 0 {
		n := math.Min(d.pageSize-addr%d.pageSize, Byte(len(p)))
		if err := transfer(addr, p[:n]); err != nil {
			return fmt.Errorf(
				"transferring `%d` bytes at address `%d`: %w",
				n,
				addr,
				err,
			)
		}
		addr += n
		p = p[n:]
	}
	return nil
}
