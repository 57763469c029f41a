package encode

import (
	"bytes"

	. "github.com/weberc2/sectorfs/pkg/types"
)

// EncodeSlot overwrites all of b, zeroing the name padding and the reserved
// tail. Names longer than NameCapacity-1 bytes are truncated; callers
// validate beforehand.
func EncodeSlot(slot *Slot, b *[SlotSize]byte) {
	*b = [SlotSize]byte{}
	p := b[:]
	copy(p[slotNameStart:slotNameEnd-1], slot.Name)
	putU16(p, slotStartStart, uint16(slot.Start))
	putU32(p, slotSizeStart, uint32(slot.Size))
	putU32(p, slotUIDStart, uint32(slot.UID))
	if slot.Encrypted {
		putU8(p, slotEncryptedStart, 1)
	}
}

func DecodeSlot(slot *Slot, b *[SlotSize]byte) {
	p := b[:]
	name := p[slotNameStart:slotNameEnd]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	slot.Name = string(name)
	slot.Start = Sector(getU16(p, slotStartStart))
	slot.Size = Byte(getU32(p, slotSizeStart))
	slot.UID = UID(getU32(p, slotUIDStart))
	slot.Encrypted = getU8(p, slotEncryptedStart) != 0
}

const (
	slotNameStart = 0
	slotNameSize  = NameCapacity
	slotNameEnd   = slotNameStart + slotNameSize

	slotStartStart = slotNameEnd
	slotStartSize  = 2
	slotStartEnd   = slotStartStart + slotStartSize

	slotSizeStart = slotStartEnd
	slotSizeSize  = 4
	slotSizeEnd   = slotSizeStart + slotSizeSize

	slotUIDStart = slotSizeEnd
	slotUIDSize  = 4
	slotUIDEnd   = slotUIDStart + slotUIDSize

	slotEncryptedStart = slotUIDEnd
	slotEncryptedSize  = 1
	slotEncryptedEnd   = slotEncryptedStart + slotEncryptedSize

	_ = uint(SlotSize - slotEncryptedEnd)
)
