package fs

import (
	"errors"
	"fmt"

	"github.com/weberc2/sectorfs/pkg/encode"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// readChainHeader reads only the header of a data sector.
func readChainHeader(
	fs *FileSystem,
	id DriveID,
	sector Sector,
	out *ChainHeader,
) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	var raw [ChainHeaderSize]byte
	if err := drive.Read(sector, 0, raw[:]); err != nil {
		return fmt.Errorf("reading chain header: %w", err)
	}
	encode.DecodeChainHeader(out, &raw)
	return nil
}

// writeChainHeader overwrites the header of a data sector, leaving its
// payload untouched.
func writeChainHeader(
	fs *FileSystem,
	id DriveID,
	sector Sector,
	header *ChainHeader,
) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	var raw [ChainHeaderSize]byte
	encode.EncodeChainHeader(header, &raw)
	if err := drive.Write(sector, 0, raw[:]); err != nil {
		return fmt.Errorf("writing chain header: %w", err)
	}
	return nil
}

// ownedHeader reads a sector's header and checks it belongs to uid.
func ownedHeader(
	fs *FileSystem,
	id DriveID,
	sector Sector,
	uid UID,
	out *ChainHeader,
) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	if !drive.InData(sector) {
		fs.Logger.Error(
			"fatal: chain leaves data region",
			"drive", id,
			"sector", sector,
			"uid", uid,
		)
		return fmt.Errorf(
			"%w: sector `%d` outside data region on drive `%d`",
			CorruptErr,
			sector,
			id,
		)
	}
	if err := readChainHeader(fs, id, sector, out); err != nil {
		return err
	}
	if out.UID != uid {
		fs.Logger.Error(
			"fatal: chain uid mismatch",
			"drive", id,
			"sector", sector,
			"want_uid", uid,
			"found_uid", out.UID,
		)
		return fmt.Errorf(
			"%w: sector `%d` on drive `%d` belongs to uid `%d`, not `%d`",
			CorruptErr,
			sector,
			id,
			out.UID,
			uid,
		)
	}
	return nil
}

func acquireSector(fs *FileSystem, id DriveID) (Sector, error) {
	drive, err := fs.drive(id)
	if err != nil {
		return SectorNil, err
	}
	sector, ok := fs.Cache.Bitmap(id).Alloc(
		drive.Geometry.DataStart,
		drive.Geometry.DataEnd,
	)
	if !ok {
		return SectorNil, fmt.Errorf(
			"acquiring sector on drive `%d`: %w",
			id,
			StoreFullErr,
		)
	}
	return sector, nil
}

// releaseChain frees every sector of the chain starting at start, checking
// each one still belongs to uid. On a mismatch the rest of the chain is left
// as-is.
func releaseChain(fs *FileSystem, id DriveID, start Sector, uid UID) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	bitmap := fs.Cache.Bitmap(id)
	limit := int(drive.Geometry.DataEnd - drive.Geometry.DataStart)
	var header ChainHeader
	for sector, hops := start, 0; sector != SectorNil; hops++ {
		if hops >= limit {
			return fmt.Errorf(
				"releasing chain of uid `%d`: %w: chain longer than the "+
					"data region",
				uid,
				CorruptErr,
			)
		}
		if err := ownedHeader(fs, id, sector, uid, &header); err != nil {
			return fmt.Errorf("releasing chain of uid `%d`: %w", uid, err)
		}
		bitmap.Free(sector)
		if err := drive.Release(sector); err != nil {
			return fmt.Errorf("releasing chain of uid `%d`: %w", uid, err)
		}
		sector = header.Next
	}
	return nil
}

// evaluateSectorTable rebuilds a drive's usage bitmap by walking the chain
// of every live file. A broken chain stops that file's walk only.
func evaluateSectorTable(fs *FileSystem, id DriveID) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	bitmap := fs.Cache.Bitmap(id)
	bitmap.Reset()
	limit := int(drive.Geometry.DataEnd - drive.Geometry.DataStart)

	if err := scanSlots(fs, id, func(_ SlotOffset, slot *Slot) (bool, error) {
		if slot.Free() {
			return true, nil
		}
		var header ChainHeader
		for sector, hops := slot.Start, 0; sector != SectorNil; hops++ {
			if hops >= limit {
				fs.Logger.Error(
					"fatal: chain longer than data region",
					"drive", id,
					"name", slot.Name,
					"uid", slot.UID,
				)
				return true, nil
			}
			if drive.InData(sector) && bitmap.Used(sector) {
				fs.Logger.Error(
					"fatal: sector claimed twice",
					"drive", id,
					"sector", sector,
					"name", slot.Name,
				)
				return true, nil
			}
			if err := ownedHeader(fs, id, sector, slot.UID, &header); err != nil {
				if errors.Is(err, CorruptErr) {
					return true, nil
				}
				return false, err
			}
			bitmap.Reserve(sector)
			sector = header.Next
		}
		return true, nil
	}); err != nil {
		return fmt.Errorf("evaluating sector table of drive `%d`: %w", id, err)
	}
	return nil
}
