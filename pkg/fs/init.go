package fs

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/backend"
	. "github.com/weberc2/sectorfs/pkg/types"
)

var drives = [DriveCount]DriveID{DrivePrimary, DriveSecondary}

// Format erases both drives and writes an empty directory and a fresh
// superblock to each. The filesystem is usable afterwards without Mount.
func Format(fs *FileSystem) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.mounted = false
	fs.Cache.Reset()
	for _, id := range drives {
		if err := format(fs, id); err != nil {
			return fmt.Errorf("formatting drive `%d`: %w", id, err)
		}
		fs.Logger.Info("formatted drive", "drive", id)
	}
	fs.mounted = true
	return nil
}

func format(fs *FileSystem, id DriveID) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	if err := drive.Backend.Init(true); err != nil {
		return fmt.Errorf("%w: initializing backend: %w", BackendIOErr, err)
	}
	fs.Cache.Clear()
	zeroes := fs.Cache.Buffer(drive.Geometry.SectorSize)
	for sector := Sector(0); sector < drive.Geometry.DirectorySectors; sector++ {
		if err := drive.Write(sector, 0, zeroes); err != nil {
			return fmt.Errorf("clearing directory: %w", err)
		}
	}
	*fs.Cache.Superblock(id) = Superblock{Version: SuperblockVersion}
	return writeSuperblock(fs, id)
}

// Mount loads both drives: it checks each superblock's version, rebuilds
// the sector usage bitmaps from the file chains, and recounts the files.
// Afterwards the primary drive is defragmented when its backend holds many
// more pages than the files account for.
func Mount(fs *FileSystem) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	fs.mounted = false
	fs.Cache.Reset()
	for _, id := range drives {
		if err := mount(fs, id); err != nil {
			return fmt.Errorf("mounting drive `%d`: %w", id, err)
		}
	}
	fs.mounted = true
	if err := maybeDefrag(fs); err != nil {
		return fmt.Errorf("mounting: %w", err)
	}
	return nil
}

func mount(fs *FileSystem, id DriveID) error {
	drive, err := fs.drive(id)
	if err != nil {
		return err
	}
	if err := drive.Backend.Init(false); err != nil {
		return fmt.Errorf("%w: initializing backend: %w", BackendIOErr, err)
	}
	if err := readSuperblock(fs, id); err != nil {
		return err
	}
	sb := fs.Cache.Superblock(id)
	if sb.Version != SuperblockVersion {
		return fmt.Errorf(
			"%w: found `%d`; wanted `%d`",
			VersionMismatchErr,
			sb.Version,
			SuperblockVersion,
		)
	}
	if err := evaluateSectorTable(fs, id); err != nil {
		return err
	}
	if err := recount(fs, id); err != nil {
		return err
	}
	fs.Logger.Info(
		"mounted drive",
		"drive", id,
		"files", sb.FileCount,
		"last_uid", sb.LastUID,
	)
	return nil
}

func maybeDefrag(fs *FileSystem) error {
	drive, err := fs.drive(DrivePrimary)
	if err != nil {
		return err
	}
	defragmenter, ok := drive.Backend.(backend.Defragmenter)
	if !ok {
		return nil
	}
	used, total := defragmenter.UsedPages(), defragmenter.TotalPages()
	if used*100 <= total*fs.DefragThresholdPercent {
		return nil
	}
	usage, err := diskUsage(fs, DrivePrimary)
	if err != nil {
		return err
	}
	if usage*2 >= used {
		return nil
	}
	fs.Logger.Info("defragmenting primary drive", "used_pages", used, "usage", usage)
	if err := defragmenter.Defrag(); err != nil {
		return fmt.Errorf("%w: defragmenting: %w", BackendIOErr, err)
	}
	fs.Logger.Info("defragmented primary drive", "used_pages", defragmenter.UsedPages())
	return nil
}

// Defrag defragments the primary drive unconditionally, when its backend
// supports it.
func Defrag(fs *FileSystem) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := checkMounted(fs); err != nil {
		return fmt.Errorf("defragmenting: %w", err)
	}
	drive, err := fs.drive(DrivePrimary)
	if err != nil {
		return err
	}
	defragmenter, ok := drive.Backend.(backend.Defragmenter)
	if !ok {
		return nil
	}
	if err := defragmenter.Defrag(); err != nil {
		return fmt.Errorf("defragmenting: %w: %w", BackendIOErr, err)
	}
	return nil
}

// Usage estimates how many data sectors the drive's files occupy.
func Usage(fs *FileSystem, id DriveID) (int, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := checkMounted(fs); err != nil {
		return 0, fmt.Errorf("computing usage: %w", err)
	}
	return diskUsage(fs, id)
}

// FreeSectors counts the unused sectors of the drive's data region.
func FreeSectors(fs *FileSystem, id DriveID) (int, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if err := checkMounted(fs); err != nil {
		return 0, fmt.Errorf("counting free sectors: %w", err)
	}
	drive, err := fs.drive(id)
	if err != nil {
		return 0, err
	}
	g := &drive.Geometry
	used := fs.Cache.Bitmap(id).Count(g.DataStart, g.DataEnd)
	return int(g.DataEnd-g.DataStart) - used, nil
}

// SuperblockOf returns a copy of the drive's in-memory superblock.
func SuperblockOf(fs *FileSystem, id DriveID) (Superblock, error) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	if _, err := fs.drive(id); err != nil {
		return Superblock{}, err
	}
	return *fs.Cache.Superblock(id), nil
}
