package fs

import (
	"fmt"

	. "github.com/weberc2/sectorfs/pkg/types"
)

func liveUIDs(fs *FileSystem, id DriveID) (map[UID]struct{}, error) {
	var live uint32
	uids := map[UID]struct{}{}
	if err := scanSlots(fs, id, func(_ SlotOffset, slot *Slot) (bool, error) {
		if !slot.Free() {
			live++
			uids[slot.UID] = struct{}{}
		}
		return true, nil
	}); err != nil {
		return nil, fmt.Errorf("collecting live uids: %w", err)
	}
	healFileCount(fs, id, live)
	return uids, nil
}

// nextUID returns the uid after last, skipping the reserved values 0 and
// 0xFFFFFFFF.
func nextUID(last UID) UID {
	next := last + 1
	if next == UIDNil || next == UIDInvalid {
		return 1
	}
	return next
}

// generateUID issues the next uid no live slot on the drive holds and records
// it as the drive's last uid.
func generateUID(fs *FileSystem, id DriveID) (UID, error) {
	uids, err := liveUIDs(fs, id)
	if err != nil {
		return UIDNil, fmt.Errorf("generating uid: %w", err)
	}
	sb := fs.Cache.Superblock(id)
	candidate := nextUID(sb.LastUID)
	for {
		if _, taken := uids[candidate]; !taken {
			break
		}
		candidate = nextUID(candidate)
	}
	sb.LastUID = candidate
	return candidate, nil
}
