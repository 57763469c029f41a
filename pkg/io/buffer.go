package io

import (
	"fmt"
	"io"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// Buffer is an in-memory Volume. Transfers must lie wholly inside the
// buffer; partial transfers are refused.
type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// NewErasedBuffer returns a buffer of the given size filled with 0xFF, the
// erased state of flash and EEPROM cells.
func NewErasedBuffer(size Byte) *Buffer {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xFF
	}
	return &Buffer{data: data}
}

func (b *Buffer) Size() Byte { return Byte(len(b.data)) }

func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) ReadAt(offset Byte, p []byte) error {
	if b.contains(offset, p) {
		copy(p, b.data[offset:])
		return nil
	}
	return fmt.Errorf(
		"reading `%d` bytes from buffer of size `%d` at offset `%d`: %w",
		len(p),
		len(b.data),
		offset,
		io.EOF,
	)
}

func (b *Buffer) WriteAt(offset Byte, p []byte) error {
	if b.contains(offset, p) {
		copy(b.data[offset:], p)
		return nil
	}
	return fmt.Errorf(
		"writing `%d` bytes to buffer of size `%d` at offset `%d`: %w",
		len(p),
		len(b.data),
		offset,
		io.ErrShortWrite,
	)
}

func (b *Buffer) contains(offset Byte, p []byte) bool {
	return offset >= 0 && offset+Byte(len(p)) <= Byte(len(b.data))
}
