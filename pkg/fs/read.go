package fs

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Read reads up to len(p) bytes from the cursor. A short count at the end of
// the file is not an error. Every sector touched is checked to still belong
// to the file; on a mismatch the bytes read so far are reported alongside a
// CorruptErr.
func Read(fs *FileSystem, s *Session, p []byte) (int, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	n, err := read(fs, s, p)
	if err != nil {
		return n, fmt.Errorf("reading `%d` bytes: %w", len(p), err)
	}
	return n, nil
}

func read(fs *FileSystem, s *Session, p []byte) (int, error) {
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
	for n < len(p) && s.Cursor < s.Size {
		if s.Index >= g.SectorSize {
			if err := ownedHeader(fs, s.Drive, s.Current, s.UID, &header); err != nil {
				return n, err
			}
			if header.Next == SectorNil {
				break
			}
			s.Current = header.Next
			s.Index = ChainHeaderSize
		}
		if err := ownedHeader(fs, s.Drive, s.Current, s.UID, &header); err != nil {
			return n, err
		}

		chunk := math.Min(
			math.Min(Byte(len(p)-n), g.SectorSize-s.Index),
			s.Size-s.Cursor,
		)
		dst := p[n : n+int(chunk)]
		if err := drive.Read(s.Current, s.Index, dst); err != nil {
			return n, err
		}
		if s.Encrypted {
			fs.Cipher.Decrypt(s.Drive, s.UID, s.Current, s.Index-ChainHeaderSize, dst)
		}
		n += int(chunk)
		s.Cursor += chunk
		s.Index += chunk
	}
	return n, nil
}
