package fs

import (
	"fmt"
	"strings"

	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func readSuperblock(fs *FileSystem, id DriveID) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	var buf [SuperblockSize]byte
	if err := drive.Read(0, 0, buf[:]); err != nil {
		return fmt.Errorf("reading superblock: %w", err)
	}
	encode.DecodeSuperblock(fs.Cache.Superblock(id), &buf)
	return nil
}

func writeSuperblock(fs *FileSystem, id DriveID) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	var buf [SuperblockSize]byte
	encode.EncodeSuperblock(fs.Cache.Superblock(id), &buf)
	if err := drive.Write(0, 0, buf[:]); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}

// scanSlots visits every slot of the drive's directory in order, free ones
// included, until visit returns false. A sector's slots are decoded before
// any of them is visited, so visit may use the scratch buffer.
func scanSlots(
	fs *FileSystem,
	id DriveID,
	visit func(offset SlotOffset, slot *Slot) (bool, error),
) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	g := &drive.Geometry
	slots := make([]Slot, g.SlotsPerSector())
	for sector := Sector(1); sector < g.DirectorySectors; sector++ {
		buf := fs.Cache.Buffer(g.SectorSize)
		if err := drive.Read(sector, 0, buf); err != nil {
			return fmt.Errorf("scanning directory: %w", err)
		}
		for i := range slots {
			var raw [SlotSize]byte
			copy(raw[:], buf[Byte(i)*SlotSize:])
			encode.DecodeSlot(&slots[i], &raw)
		}
		for i := range slots {
			more, err := visit(g.SlotOffset(sector, Byte(i)), &slots[i])
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
	}
	return nil
}

// findSlot looks a name up on its drive. The directory is always scanned in
// full; a scan that disagrees with the superblock's file count corrects it.
func findSlot(
	fs *FileSystem,
	id DriveID,
	name string,
	out *Slot,
) (SlotOffset, error) {
	var (
		found SlotOffset
		ok    bool
		live  uint32
	)
	if err := scanSlots(fs, id, func(offset SlotOffset, slot *Slot) (bool, error) {
		if slot.Free() {
			return true, nil
		}
		live++
		if !ok && slot.Name == name {
			found, ok = offset, true
			if out != nil {
				*out = *slot
			}
		}
		return true, nil
	}); err != nil {
		return 0, fmt.Errorf("finding `%s`: %w", name, err)
	}
	healFileCount(fs, id, live)
	if !ok {
		return 0, fmt.Errorf("finding `%s`: %w", name, NotFoundErr)
	}
	return found, nil
}

func healFileCount(fs *FileSystem, id DriveID, live uint32) {
	sb := fs.Cache.Superblock(id)
	if sb.FileCount != live {
		fs.Logger.Warn(
			"file count disagrees with directory; correcting",
			"drive", id,
			"recorded", sb.FileCount,
			"live", live,
		)
		sb.FileCount = live
	}
}

func findFreeSlot(fs *FileSystem, id DriveID) (SlotOffset, error) {
	var (
		found SlotOffset
		ok    bool
	)
	if err := scanSlots(fs, id, func(offset SlotOffset, slot *Slot) (bool, error) {
		if slot.Free() {
			found, ok = offset, true
			return false, nil
		}
		return true, nil
	}); err != nil {
		return 0, fmt.Errorf("finding free slot: %w", err)
	}
	if !ok {
		return 0, DirectoryFullErr
	}
	return found, nil
}

func slotLocation(
	fs *FileSystem,
	id DriveID,
	offset SlotOffset,
) (*Drive, Sector, Byte, error) {
	drive, err := fs.drive(id)
	if err != nil {
		return nil, 0, 0, err
	}
	sector, local := drive.Geometry.SlotLocation(offset)
	if sector < 1 || sector >= drive.Geometry.DirectorySectors ||
		local%SlotSize != 0 {
		return nil, 0, 0, fmt.Errorf(
			"%w: slot offset `%d` is not a directory slot",
			InvalidArgumentErr,
			offset,
		)
	}
	return drive, sector, local, nil
}

func readSlot(fs *FileSystem, id DriveID, offset SlotOffset, out *Slot) error {
	drive, sector, local, err := slotLocation(fs, id, offset)
	if err != nil {
		return fmt.Errorf("reading slot: %w", err)
	}
	var raw [SlotSize]byte
	if err := drive.Read(sector, local, raw[:]); err != nil {
		return fmt.Errorf("reading slot `%d`: %w", offset, err)
	}
	encode.DecodeSlot(out, &raw)
	return nil
}

func writeSlot(fs *FileSystem, id DriveID, offset SlotOffset, slot *Slot) error {
	drive, sector, local, err := slotLocation(fs, id, offset)
	if err != nil {
		return fmt.Errorf("writing slot: %w", err)
	}
	var raw [SlotSize]byte
	encode.EncodeSlot(slot, &raw)
	if err := drive.Write(sector, local, raw[:]); err != nil {
		return fmt.Errorf("writing slot `%d`: %w", offset, err)
	}
	return nil
}

// diskUsage estimates the data sectors live files occupy from their sizes.
func diskUsage(fs *FileSystem, id DriveID) (int, error) {
	drive, err := fs.drive(id)
	if err != nil {
		return 0, err
	}
	var total Byte
	if err := scanSlots(fs, id, func(_ SlotOffset, slot *Slot) (bool, error) {
		if !slot.Free() {
			total += slot.Size
		}
		return true, nil
	}); err != nil {
		return 0, fmt.Errorf("computing disk usage: %w", err)
	}
	return int(math.DivRoundUp(total, drive.Geometry.Payload())), nil
}

// recount recomputes the superblock's file count and last uid from the
// directory. The last uid never moves backwards.
func recount(fs *FileSystem, id DriveID) error {
	var (
		live    uint32
		highest UID
	)
	if err := scanSlots(fs, id, func(_ SlotOffset, slot *Slot) (bool, error) {
		if !slot.Free() {
			live++
			highest = math.Max(highest, slot.UID)
		}
		return true, nil
	}); err != nil {
		return fmt.Errorf("recounting files: %w", err)
	}
	sb := fs.Cache.Superblock(id)
	sb.FileCount = live
	sb.LastUID = math.Max(sb.LastUID, highest)
	return nil
}

func checkName(name string) error {
	switch {
	case name == "" || name == SecondaryPrefix:
		return fmt.Errorf("%w: empty name", InvalidArgumentErr)
	case len(name) >= NameCapacity:
		return fmt.Errorf(
			"%w: `%d` bytes; at most `%d` allowed",
			NameTooLongErr,
			len(name),
			NameCapacity-1,
		)
	case strings.IndexByte(name, 0) >= 0:
		return fmt.Errorf("%w: name contains NUL", InvalidArgumentErr)
	}
	return nil
}
