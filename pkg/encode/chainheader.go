package encode

import (
	. "github.com/weberc2/sectorfs/pkg/types"
)

func EncodeChainHeader(header *ChainHeader, b *[ChainHeaderSize]byte) {
	p := b[:]
	putU32(p, chainSlotStart, uint32(header.Slot))
	putU32(p, chainUIDStart, uint32(header.UID))
	putU16(p, chainPrevStart, uint16(header.Prev))
	putU16(p, chainNextStart, uint16(header.Next))
	putU32(p, chainReservedStart, header.Reserved)
}

func DecodeChainHeader(header *ChainHeader, b *[ChainHeaderSize]byte) {
	p := b[:]
	header.Slot = SlotOffset(getU32(p, chainSlotStart))
	header.UID = UID(getU32(p, chainUIDStart))
	header.Prev = Sector(getU16(p, chainPrevStart))
	header.Next = Sector(getU16(p, chainNextStart))
	header.Reserved = getU32(p, chainReservedStart)
}

const (
	chainSlotStart = 0
	chainSlotSize  = 4
	chainSlotEnd   = chainSlotStart + chainSlotSize

	chainUIDStart = chainSlotEnd
	chainUIDSize  = 4
	chainUIDEnd   = chainUIDStart + chainUIDSize

	chainPrevStart = chainUIDEnd
	chainPrevSize  = 2
	chainPrevEnd   = chainPrevStart + chainPrevSize

	chainNextStart = chainPrevEnd
	chainNextSize  = 2
	chainNextEnd   = chainNextStart + chainNextSize

	chainReservedStart = chainNextEnd
	chainReservedSize  = 4
	chainReservedEnd   = chainReservedStart + chainReservedSize

	_ = uint(ChainHeaderSize - chainReservedEnd)
)
