package fs

import (
	"errors"
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Open opens or creates the named file according to mode and fills in s.
// Names beginning with "e:" live on the secondary drive.
func Open(fs *FileSystem, path string, mode Mode, s *Session) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := open(fs, path, mode, s); err != nil {
		return fmt.Errorf("opening `%s`: %w", path, err)
	}
	return nil
}

func open(fs *FileSystem, path string, mode Mode, s *Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", InvalidArgumentErr)
	}
	if err := checkMounted(fs); err != nil {
		return err
	}
	if err := checkName(path); err != nil {
		return err
	}

	id := DriveIDFromPath(path)
	var slot Slot
	offset, err := findSlot(fs, id, path, &slot)
	switch {
	case err == nil:
		if mode&ModeCreateAlways != 0 {
			if err := truncate(fs, id, offset, &slot); err != nil {
				return err
			}
		} else if mode&ModeCreateNew != 0 {
			return NameTakenErr
		}
	case errors.Is(err, NotFoundErr):
		if mode&modeCreate == 0 {
			return err
		}
		if offset, err = create(fs, id, path, &slot); err != nil {
			return err
		}
	default:
		return err
	}

	*s = Session{
		Drive:     id,
		UID:       slot.UID,
		Slot:      offset,
		Start:     slot.Start,
		Size:      slot.Size,
		Current:   slot.Start,
		Index:     ChainHeaderSize,
		Encrypted: slot.Encrypted,
		Mode:      mode,
		open:      true,
	}
	if mode&modeAppend != 0 {
		if err := seek(fs, s, s.Size); err != nil {
			s.open = false
			return fmt.Errorf("seeking to end for append: %w", err)
		}
	}
	return nil
}

// create claims a free slot and a head sector for a new, empty file.
func create(fs *FileSystem, id DriveID, name string, slot *Slot) (SlotOffset, error) {
	offset, err := findFreeSlot(fs, id)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	start, err := acquireSector(fs, id)
	if err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	uid, err := generateUID(fs, id)
	if err != nil {
		fs.Cache.Bitmap(id).Free(start)
		return 0, fmt.Errorf("creating file: %w", err)
	}
	if err := writeChainHeader(
		fs,
		id,
		start,
		&ChainHeader{Slot: offset, UID: uid},
	); err != nil {
		fs.Cache.Bitmap(id).Free(start)
		return 0, fmt.Errorf("creating file: %w", err)
	}

	*slot = Slot{Name: name, Start: start, UID: uid, Encrypted: true}
	if err := writeSlot(fs, id, offset, slot); err != nil {
		fs.Cache.Bitmap(id).Free(start)
		return 0, fmt.Errorf("creating file: %w", err)
	}
	fs.Cache.Superblock(id).FileCount++
	if err := writeSuperblock(fs, id); err != nil {
		return 0, fmt.Errorf("creating file: %w", err)
	}
	fs.Logger.Debug("created file", "drive", id, "name", name, "uid", uid, "start", start)
	return offset, nil
}

// truncate empties an existing file in place: its chain is released, it
// takes a fresh uid, and its head sector is reclaimed for the new
// generation.
func truncate(fs *FileSystem, id DriveID, offset SlotOffset, slot *Slot) error {
	if err := releaseChain(fs, id, slot.Start, slot.UID); err != nil {
		return fmt.Errorf("truncating file: %w", err)
	}
	uid, err := generateUID(fs, id)
	if err != nil {
		return fmt.Errorf("truncating file: %w", err)
	}
	fs.Cache.Bitmap(id).Reserve(slot.Start)
	if err := writeChainHeader(
		fs,
		id,
		slot.Start,
		&ChainHeader{Slot: offset, UID: uid},
	); err != nil {
		return fmt.Errorf("truncating file: %w", err)
	}
	slot.UID = uid
	slot.Size = 0
	if err := writeSlot(fs, id, offset, slot); err != nil {
		return fmt.Errorf("truncating file: %w", err)
	}
	if err := writeSuperblock(fs, id); err != nil {
		return fmt.Errorf("truncating file: %w", err)
	}
	return nil
}
