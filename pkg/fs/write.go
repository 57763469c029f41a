package fs

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Write writes p at the cursor, growing the chain as needed. Sectors are
// committed as they are filled, and the file size is persisted before
// Write returns, even when it fails part way through (for example with
// StoreFullErr).
func Write(fs *FileSystem, s *Session, p []byte) (int, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	n, err := write(fs, s, p)
	if err != nil {
		return n, fmt.Errorf("writing `%d` bytes: %w", len(p), err)
	}
	return n, nil
}

func write(fs *FileSystem, s *Session, p []byte) (int, error) {
	if err := checkSession(fs, s); err != nil {
		return 0, err
	}
	if err := refresh(fs, s); err != nil {
		return 0, err
	}
	drive, err := fs.drive(s.Drive)
	if err != nil {
		return 0, err
	}
	g := &drive.Geometry

	var (
		n      int
		header ChainHeader
	)
	for n < len(p) {
		if s.Index >= g.SectorSize {
			if err = advance(fs, s); err != nil {
				break
			}
		}
		if err = ownedHeader(fs, s.Drive, s.Current, s.UID, &header); err != nil {
			break
		}

		chunk := math.Min(Byte(len(p)-n), g.SectorSize-s.Index)
		src := p[n : n+int(chunk)]
		if s.Encrypted {
			buf := fs.Cache.Buffer(chunk)
			copy(buf, src)
			fs.Cipher.Encrypt(s.Drive, s.UID, s.Current, s.Index-ChainHeaderSize, buf)
			src = buf
		}
		if err = drive.Write(s.Current, s.Index, src); err != nil {
			break
		}
		n += int(chunk)
		s.Cursor += chunk
		s.Index += chunk
	}

	if s.Cursor > s.Size {
		s.Size = s.Cursor
		if perr := persistSize(fs, s); perr != nil && err == nil {
			err = perr
		}
	}
	return n, err
}

// advance moves a session sitting at the end of a full sector to the start
// of the next one, appending a fresh sector to the chain when the current
// one is the tail.
func advance(fs *FileSystem, s *Session) error {
	var tail ChainHeader
	if err := ownedHeader(fs, s.Drive, s.Current, s.UID, &tail); err != nil {
		return err
	}
	if tail.Next != SectorNil {
		s.Current = tail.Next
		s.Index = ChainHeaderSize
		return nil
	}

	next, err := acquireSector(fs, s.Drive)
	if err != nil {
		return err
	}
	if err := writeChainHeader(
		fs,
		s.Drive,
		next,
		&ChainHeader{Slot: s.Slot, UID: s.UID, Prev: s.Current},
	); err != nil {
		fs.Cache.Bitmap(s.Drive).Free(next)
		return err
	}
	tail.Next = next
	if err := writeChainHeader(fs, s.Drive, s.Current, &tail); err != nil {
		fs.Cache.Bitmap(s.Drive).Free(next)
		return err
	}
	s.Current = next
	s.Index = ChainHeaderSize
	return nil
}

func persistSize(fs *FileSystem, s *Session) error {
	var slot Slot
	if err := readSlot(fs, s.Drive, s.Slot, &slot); err != nil {
		return fmt.Errorf("persisting size: %w", err)
	}
	if slot.UID != s.UID {
		return fmt.Errorf("persisting size: %w", StaleSessionErr)
	}
	slot.Size = s.Size
	if err := writeSlot(fs, s.Drive, s.Slot, &slot); err != nil {
		return fmt.Errorf("persisting size: %w", err)
	}
	return nil
}
