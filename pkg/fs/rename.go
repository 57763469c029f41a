package fs

import (
	"errors"
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Rename changes a file's name in place. Both names must live on the same
// drive and the new one must be free.
func Rename(fs *FileSystem, oldPath, newPath string) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := rename(fs, oldPath, newPath); err != nil {
		return fmt.Errorf("renaming `%s` to `%s`: %w", oldPath, newPath, err)
	}
	return nil
}

func rename(fs *FileSystem, oldPath, newPath string) error {
	if err := checkMounted(fs); err != nil {
		return err
	}
	if err := checkName(oldPath); err != nil {
		return err
	}
	if err := checkName(newPath); err != nil {
		return err
	}
	id := DriveIDFromPath(oldPath)
	if DriveIDFromPath(newPath) != id {
		return CrossDriveErr
	}

	if _, err := findSlot(fs, id, newPath, nil); err == nil {
		return NameTakenErr
	} else if !errors.Is(err, NotFoundErr) {
		return err
	}

	var slot Slot
	offset, err := findSlot(fs, id, oldPath, &slot)
	if err != nil {
		return err
	}
	slot.Name = newPath
	return writeSlot(fs, id, offset, &slot)
}
