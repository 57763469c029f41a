package fs

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Remove deletes the named file. The slot is cleared first, then the chain
// is released.
func Remove(fs *FileSystem, path string) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := remove(fs, path); err != nil {
		return fmt.Errorf("removing `%s`: %w", path, err)
	}
	return nil
}

func remove(fs *FileSystem, path string) error {
	if err := checkMounted(fs); err != nil {
		return err
	}
	if err := checkName(path); err != nil {
		return err
	}
	id := DriveIDFromPath(path)
	var slot Slot
	offset, err := findSlot(fs, id, path, &slot)
	if err != nil {
		return err
	}
	if err := writeSlot(fs, id, offset, &Slot{}); err != nil {
		return err
	}
	if sb := fs.Cache.Superblock(id); sb.FileCount > 0 {
		sb.FileCount--
	}
	if err := writeSuperblock(fs, id); err != nil {
		return err
	}
	return releaseChain(fs, id, slot.Start, slot.UID)
}
