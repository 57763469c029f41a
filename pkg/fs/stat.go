package fs

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

type FileInfo struct {
	Name      string
	Drive     DriveID
	Size      Byte
	UID       UID
	Start     Sector
	Encrypted bool
}

func fileInfo(id DriveID, slot *Slot, out *FileInfo) {
	*out = FileInfo{
		Name:      slot.Name,
		Drive:     id,
		Size:      slot.Size,
		UID:       slot.UID,
		Start:     slot.Start,
		Encrypted: slot.Encrypted,
	}
}

func Stat(fs *FileSystem, path string, out *FileInfo) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := stat(fs, path, out); err != nil {
		return fmt.Errorf("stat-ing `%s`: %w", path, err)
	}
	return nil
}

func stat(fs *FileSystem, path string, out *FileInfo) error {
	if out == nil {
		return fmt.Errorf("%w: nil file info", InvalidArgumentErr)
	}
	if err := checkMounted(fs); err != nil {
		return err
	}
	if err := checkName(path); err != nil {
		return err
	}
	id := DriveIDFromPath(path)
	var slot Slot
	if _, err := findSlot(fs, id, path, &slot); err != nil {
		return err
	}
	fileInfo(id, &slot, out)
	return nil
}
