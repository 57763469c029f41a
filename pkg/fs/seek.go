package fs

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/math"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Seek moves the cursor to offset, clamped to the file size, by walking the
// chain from the current sector toward the target. Each hop checks the
// sector still belongs to the file.
func Seek(fs *FileSystem, s *Session, offset Byte) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := seek(fs, s, offset); err != nil {
		return fmt.Errorf("seeking to `%d`: %w", offset, err)
	}
	return nil
}

func seek(fs *FileSystem, s *Session, offset Byte) error {
	if err := checkSession(fs, s); err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("%w: negative offset", InvalidArgumentErr)
	}
	drive, err := fs.drive(s.Drive)
	if err != nil {
		return err
	}

	if err := refresh(fs, s); err != nil {
		return err
	}

	payload := drive.Geometry.Payload()
	target := math.Clamp(offset, 0, s.Size)
	wanted, index := position(target, payload)
	current, _ := position(s.Cursor, payload)

	var header ChainHeader
	if err := ownedHeader(fs, s.Drive, s.Current, s.UID, &header); err != nil {
		return err
	}
	for current != wanted {
		next, step := header.Next, 1
		if wanted < current {
			next, step = header.Prev, -1
		}
		if next == SectorNil {
			return settle(
				s,
				current,
				payload,
				fmt.Errorf(
					"%w: chain of uid `%d` ends at sector `%d`",
					CorruptErr,
					s.UID,
					s.Current,
				),
			)
		}
		if err := ownedHeader(fs, s.Drive, next, s.UID, &header); err != nil {
			return settle(s, current, payload, err)
		}
		s.Current = next
		current += step
	}
	s.Cursor = target
	s.Index = index
	return nil
}

// settle leaves the cursor at the end of the last sector the walk reached
// consistently.
func settle(s *Session, ordinal int, payload Byte, err error) error {
	start := Byte(ordinal) * payload
	s.Cursor = math.Min(start+payload, s.Size)
	s.Index = s.Cursor - start + ChainHeaderSize
	return err
}
