package encode

import (
	. "github.com/weberc2/sectorfs/pkg/types"
)

func EncodeSuperblock(sb *Superblock, b *[SuperblockSize]byte) {
	p := b[:]
	putU32(p, superblockVersionStart, sb.Version)
	putU32(p, superblockLastUIDStart, uint32(sb.LastUID))
	putU32(p, superblockFileCountStart, sb.FileCount)
}

func DecodeSuperblock(sb *Superblock, b *[SuperblockSize]byte) {
	p := b[:]
	sb.Version = getU32(p, superblockVersionStart)
	sb.LastUID = UID(getU32(p, superblockLastUIDStart))
	sb.FileCount = getU32(p, superblockFileCountStart)
}

const (
	superblockVersionStart = 0
	superblockVersionSize  = 4
	superblockVersionEnd   = superblockVersionStart + superblockVersionSize

	superblockLastUIDStart = superblockVersionEnd
	superblockLastUIDSize  = 4
	superblockLastUIDEnd   = superblockLastUIDStart + superblockLastUIDSize

	superblockFileCountStart = superblockLastUIDEnd
	superblockFileCountSize  = 4
	superblockFileCountEnd   = superblockFileCountStart + superblockFileCountSize

	_ = uint(SuperblockSize - superblockFileCountEnd)
)
