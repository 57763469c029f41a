package types

// Byte is a count or offset of bytes.
type Byte int64

const (
	Kibibyte Byte = 1024
	Mebibyte Byte = 1024 * Kibibyte
)

// Sector is an absolute sector number on a drive.
type Sector uint16

// SectorNil terminates a chain in both directions.
const SectorNil Sector = 0

// UID identifies one generation of a file. Recreating a file issues a new
// UID so stale chain sectors can be told apart from live ones.
type UID uint32

const (
	UIDNil     UID = 0
	UIDInvalid UID = 0xFFFFFFFF
)

// SlotOffset is the absolute byte offset of a metadata slot on its drive.
type SlotOffset uint32

type DriveID uint8

const (
	DrivePrimary DriveID = iota
	DriveSecondary
	DriveCount int = iota
)

// SecondaryPrefix selects the secondary drive when it begins a path.
const SecondaryPrefix = "e:"

const (
	// SuperblockVersion is the only on-disk format revision understood.
	SuperblockVersion uint32 = 2023

	SuperblockSize  Byte = 12
	SlotSize        Byte = 128
	ChainHeaderSize Byte = 16

	// NameCapacity includes the terminating NUL.
	NameCapacity = 64
)

type Superblock struct {
	Version   uint32
	LastUID   UID
	FileCount uint32
}

type Slot struct {
	Name      string
	Start     Sector
	Size      Byte
	UID       UID
	Encrypted bool
}

// Free reports whether the slot is unused.
func (s *Slot) Free() bool { return s.Name == "" }

type ChainHeader struct {
	Slot     SlotOffset
	UID      UID
	Prev     Sector
	Next     Sector
	Reserved uint32
}
