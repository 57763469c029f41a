package io

import (
	"fmt"
	"os"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// FileVolume is a Volume backed by a fixed-size image file on the host.
type FileVolume struct {
	file *os.File
	size Byte
}

// OpenFileVolume opens (or creates) the image at path. A newly created or
// undersized image is extended to size with erased (0xFF) bytes; the second
// return value reports whether that happened.
func OpenFileVolume(path string, size Byte) (*FileVolume, bool, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("opening image `%s`: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, false, fmt.Errorf("stat-ing image `%s`: %w", path, err)
	}

	volume := FileVolume{file: file, size: size}
	extended := false
	if current := Byte(info.Size()); current < size {
		if err := volume.erase(current, size); err != nil {
			file.Close()
			return nil, false, fmt.Errorf(
				"extending image `%s` to `%d` bytes: %w",
				path,
				size,
				err,
			)
		}
		extended = true
	}
	return &volume, extended, nil
}

func (v *FileVolume) erase(start, end Byte) error {
	chunk := make([]byte, 4*Kibibyte)
	for i := range chunk {
		chunk[i] = 0xFF
	}
	for offset := start; offset < end; offset += Byte(len(chunk)) {
		n := end - offset
		if n > Byte(len(chunk)) {
			n = Byte(len(chunk))
		}
		if _, err := v.file.WriteAt(chunk[:n], int64(offset)); err != nil {
			return err
		}
	}
	return nil
}

func (v *FileVolume) Size() Byte { return v.size }

func (v *FileVolume) ReadAt(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > v.size {
		return fmt.Errorf(
			"reading `%d` bytes at offset `%d` from image `%s`: out of bounds",
			len(p),
			offset,
			v.file.Name(),
		)
	}
	if _, err := v.file.ReadAt(p, int64(offset)); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes at offset `%d` from image `%s`: %w",
			len(p),
			offset,
			v.file.Name(),
			err,
		)
	}
	return nil
}

func (v *FileVolume) WriteAt(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > v.size {
		return fmt.Errorf(
			"writing `%d` bytes at offset `%d` to image `%s`: out of bounds",
			len(p),
			offset,
			v.file.Name(),
		)
	}
	if _, err := v.file.WriteAt(p, int64(offset)); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes at offset `%d` to image `%s`: %w",
			len(p),
			offset,
			v.file.Name(),
			err,
		)
	}
	return nil
}

func (v *FileVolume) Sync() error { return v.file.Sync() }

func (v *FileVolume) Close() error { return v.file.Close() }
