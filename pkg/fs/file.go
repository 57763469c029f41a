package fs

import (
	"fmt"
	"io"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// File adapts a session to the io interfaces.
type File struct {
	fs      *FileSystem
	session Session
}

var _ io.ReadWriteSeeker = (*File)(nil)

func OpenFile(fs *FileSystem, path string, mode Mode) (*File, error) {
	f := File{fs: fs}
	if err := Open(fs, path, mode, &f.session); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) Session() *Session { return &f.session }

func (f *File) Read(p []byte) (int, error) {
	n, err := Read(f.fs, &f.session, p)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, err
}

func (f *File) Write(p []byte) (int, error) {
	n, err := Write(f.fs, &f.session, p)
	if err == nil && n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, err
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base Byte
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		cursor, err := Tell(f.fs, &f.session)
		if err != nil {
			return 0, err
		}
		base = cursor
	case io.SeekEnd:
		size, err := Size(f.fs, &f.session)
		if err != nil {
			return 0, err
		}
		base = size
	default:
		return 0, fmt.Errorf("seeking: %w: whence `%d`", InvalidArgumentErr, whence)
	}
	if err := Seek(f.fs, &f.session, base+Byte(offset)); err != nil {
		return 0, err
	}
	cursor, err := Tell(f.fs, &f.session)
	return int64(cursor), err
}

func (f *File) Size() (Byte, error) { return Size(f.fs, &f.session) }

func (f *File) Close() error { return Close(f.fs, &f.session) }
