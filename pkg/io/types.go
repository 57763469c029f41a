package io

import (
	. "github.com/weberc2/sectorfs/pkg/types"
)

type ReadAt interface {
	ReadAt(offset Byte, b []byte) error
}

type WriteAt interface {
	WriteAt(offset Byte, p []byte) error
}

// Volume is a flat, fixed-size, byte-addressable medium such as a flash
// array or an EEPROM image.
type Volume interface {
	ReadAt
	WriteAt
	Size() Byte
}
