package fs

import (
	"fmt"
	"io"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// DirCursor walks the live files of one drive in slot order.
type DirCursor struct {
	Drive DriveID
	index int
	open  bool
}

// OpenDir opens the flat directory of the drive path selects; "e:" selects
// the secondary drive and anything else the primary.
func OpenDir(fs *FileSystem, path string, c *DirCursor) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if c == nil {
		return fmt.Errorf("opening directory: %w: nil cursor", InvalidArgumentErr)
	}
	if err := checkMounted(fs); err != nil {
		return fmt.Errorf("opening directory: %w", err)
	}
	*c = DirCursor{Drive: DriveIDFromPath(path), open: true}
	return nil
}

// ReadDir fills out with the next live file, returning io.EOF once every
// file has been visited.
func ReadDir(fs *FileSystem, c *DirCursor, out *FileInfo) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if c == nil || out == nil {
		return fmt.Errorf("reading directory: %w", InvalidArgumentErr)
	}
	if !c.open {
		return fmt.Errorf("reading directory: %w", ClosedErr)
	}
	if err := checkMounted(fs); err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}

	live, found := 0, false
	if err := scanSlots(fs, c.Drive, func(_ SlotOffset, slot *Slot) (bool, error) {
		if slot.Free() {
			return true, nil
		}
		if live == c.index {
			fileInfo(c.Drive, slot, out)
			found = true
			return false, nil
		}
		live++
		return true, nil
	}); err != nil {
		return fmt.Errorf("reading directory: %w", err)
	}
	if !found {
		return io.EOF
	}
	c.index++
	return nil
}

func CloseDir(fs *FileSystem, c *DirCursor) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if c == nil {
		return fmt.Errorf("closing directory: %w", InvalidArgumentErr)
	}
	c.open = false
	return nil
}
