// Package crypt transforms file payload bytes on their way to and from a
// drive. Transforms are length-preserving and positioned by the drive, the
// file's uid, the sector, and the byte offset within the sector's payload, so
// any sub-range of a sector can be processed independently.
package crypt

import (
	. "github.com/weberc2/sectorfs/pkg/types"
)

type Cipher interface {
	Encrypt(drive DriveID, uid UID, sector Sector, offset Byte, p []byte)
	Decrypt(drive DriveID, uid UID, sector Sector, offset Byte, p []byte)
}

// PassThrough leaves payloads untouched.
type PassThrough struct{}

func (PassThrough) Encrypt(DriveID, UID, Sector, Byte, []byte) {}

func (PassThrough) Decrypt(DriveID, UID, Sector, Byte, []byte) {}
