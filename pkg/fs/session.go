package fs

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

type Mode uint8

const (
	ModeRead         Mode = 0x01
	ModeWrite        Mode = 0x02
	ModeOpenExisting Mode = 0x00
	ModeCreateNew    Mode = 0x04
	ModeCreateAlways Mode = 0x08
	ModeOpenAlways   Mode = 0x10
	ModeOpenAppend   Mode = 0x30

	modeAppend Mode = 0x20
	modeCreate      = ModeCreateNew | ModeCreateAlways | ModeOpenAlways
)

// Session is the state of one open file. The cursor sits at byte Index of
// sector Current; Index reaches the sector size when the cursor ends exactly
// on a sector boundary, and the move to the next sector happens on the next
// transfer.
type Session struct {
	Drive     DriveID
	UID       UID
	Slot      SlotOffset
	Start     Sector
	Cursor    Byte
	Size      Byte
	Current   Sector
	Index     Byte
	Encrypted bool
	Mode      Mode

	open bool
}

func (s *Session) IsOpen() bool { return s != nil && s.open }

func checkSession(fs *FileSystem, s *Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", InvalidArgumentErr)
	}
	if !s.open {
		return ClosedErr
	}
	return checkMounted(fs)
}

// refresh fails with StaleSessionErr once the file's slot has been given a
// new uid (truncated, or removed and reused) and otherwise picks up the size
// other sessions may have grown the file to.
func refresh(fs *FileSystem, s *Session) error {
	var slot Slot
	if err := readSlot(fs, s.Drive, s.Slot, &slot); err != nil {
		return err
	}
	if slot.UID != s.UID {
		return StaleSessionErr
	}
	s.Size = slot.Size
	return nil
}

// position maps a file offset to the ordinal of the sector holding it and
// the in-sector index, keeping the cursor in the earlier sector when it
// falls on a boundary.
func position(offset, payload Byte) (int, Byte) {
	if offset == 0 {
		return 0, ChainHeaderSize
	}
	ordinal := (offset - 1) / payload
	return int(ordinal), offset - ordinal*payload + ChainHeaderSize
}

func Tell(fs *FileSystem, s *Session) (Byte, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := checkSession(fs, s); err != nil {
		return 0, fmt.Errorf("telling cursor: %w", err)
	}
	return s.Cursor, nil
}

func Size(fs *FileSystem, s *Session) (Byte, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := checkSession(fs, s); err != nil {
		return 0, fmt.Errorf("getting size: %w", err)
	}
	return s.Size, nil
}

// Close ends the session. It performs no I/O; every write has already been
// committed.
func Close(fs *FileSystem, s *Session) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if s == nil {
		return fmt.Errorf("closing file: %w: nil session", InvalidArgumentErr)
	}
	if !s.open {
		return fmt.Errorf("closing file: %w", ClosedErr)
	}
	s.open = false
	return nil
}
