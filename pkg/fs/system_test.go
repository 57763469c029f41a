package fs

import (
	"bytes"
	"fmt"
	stdio "io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/weberc2/sectorfs/pkg/encode"
	"github.com/weberc2/sectorfs/pkg/logging"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func TestDriveIDFromPath(t *testing.T) {
	for path, wanted := range map[string]DriveID{
		"log.txt":   DrivePrimary,
		"e:log.txt": DriveSecondary,
		"E:log.txt": DrivePrimary,
		"/e:x":      DrivePrimary,
	} {
		if found := DriveIDFromPath(path); found != wanted {
			t.Fatalf("path `%s`: wanted `%d`; found `%d`", path, wanted, found)
		}
	}
}

func TestRegistryBounds(t *testing.T) {
	fs, _ := newFormatted(t)
	drive, err := fs.Registry.Drive(DriveSecondary)
	require.NoError(t, err)

	err = drive.Read(256, 0, make([]byte, 1))
	require.ErrorIs(t, err, OutOfRangeErr)
	require.Equal(t, CodeOutOfRange, Code(err))
	require.ErrorIs(t, drive.Write(300, 0, make([]byte, 1)), OutOfRangeErr)
	require.ErrorIs(t, drive.Release(256), OutOfRangeErr)
	require.NoError(t, drive.Read(255, 0, make([]byte, 1)))

	// backend failures surface as backend i/o errors
	err = drive.Read(255, 510, make([]byte, 4))
	require.ErrorIs(t, err, BackendIOErr)

	_, err = fs.Registry.Drive(2)
	require.ErrorIs(t, err, InvalidArgumentErr)
}

func TestUIDUniqueness(t *testing.T) {
	fs, _ := newFormatted(t)
	seen := map[UID]string{}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("e:file-%d", i)
		writeFile(t, fs, name, pattern(i))
		var info FileInfo
		require.NoError(t, Stat(fs, name, &info))
		require.NotContains(t, seen, info.UID)
		require.NotEqual(t, UIDNil, info.UID)
		seen[info.UID] = name
	}

	// recreating issues a fresh uid too
	var before, after FileInfo
	require.NoError(t, Stat(fs, "e:file-3", &before))
	writeFile(t, fs, "e:file-3", pattern(3))
	require.NoError(t, Stat(fs, "e:file-3", &after))
	require.NotContains(t, seen, after.UID)
	require.NotEqual(t, before.UID, after.UID)
}

func TestUIDWraparound(t *testing.T) {
	fs, _ := newFormatted(t)
	writeFile(t, fs, "e:one", nil)

	var one FileInfo
	require.NoError(t, Stat(fs, "e:one", &one))
	require.Equal(t, UID(1), one.UID)

	fs.Cache.Superblock(DriveSecondary).LastUID = UIDInvalid - 1
	writeFile(t, fs, "e:two", nil)

	// 0xFFFFFFFF and 0 are skipped and 1 is taken
	var two FileInfo
	require.NoError(t, Stat(fs, "e:two", &two))
	require.Equal(t, UID(2), two.UID)

	for _, testCase := range []struct{ last, wanted UID }{
		{0, 1},
		{41, 42},
		{UIDInvalid - 1, 1},
		{UIDInvalid, 1},
	} {
		require.Equal(t, testCase.wanted, nextUID(testCase.last))
	}

	uids, err := liveUIDs(fs, DriveSecondary)
	require.NoError(t, err)
	require.Contains(t, uids, UID(2))
	require.NotContains(t, uids, UID(3))
}

func TestDirectoryFull(t *testing.T) {
	fs, _ := newFormatted(t)
	slots := int(testPrimaryGeometry.SlotCount())
	for i := 0; i < slots; i++ {
		writeFile(t, fs, fmt.Sprintf("file-%d", i), nil)
	}
	used := usedSectors(t, fs, DrivePrimary)
	require.Equal(t, slots, used)

	var s Session
	err := Open(fs, "one-too-many", ModeWrite|ModeCreateNew, &s)
	require.ErrorIs(t, err, DirectoryFullErr)
	require.Equal(t, CodeDirectoryFull, Code(err))
	require.Equal(t, used, usedSectors(t, fs, DrivePrimary))

	sb, err := SuperblockOf(fs, DrivePrimary)
	require.NoError(t, err)
	require.Equal(t, uint32(slots), sb.FileCount)

	// the secondary drive has a directory of its own
	writeFile(t, fs, "e:still-fits", nil)
}

func TestFreeSpaceReuse(t *testing.T) {
	fs, _ := newFormatted(t)
	initial, err := FreeSectors(fs, DriveSecondary)
	require.NoError(t, err)

	writeFile(t, fs, "e:big", pattern(1400))
	free, err := FreeSectors(fs, DriveSecondary)
	require.NoError(t, err)
	require.Equal(t, initial-3, free)

	var info FileInfo
	require.NoError(t, Stat(fs, "e:big", &info))
	require.NoError(t, Remove(fs, "e:big"))
	free, err = FreeSectors(fs, DriveSecondary)
	require.NoError(t, err)
	require.Equal(t, initial, free)

	writeFile(t, fs, "e:next", pattern(10))
	var next FileInfo
	require.NoError(t, Stat(fs, "e:next", &next))
	require.Equal(t, info.Start, next.Start)
}

func TestRemove(t *testing.T) {
	fs, d := newFormatted(t)
	writeFile(t, fs, "keep", pattern(10))
	writeFile(t, fs, "drop", pattern(10))

	err := Remove(fs, "missing")
	require.ErrorIs(t, err, NotFoundErr)
	require.Equal(t, CodeNotFound, Code(err))

	require.NoError(t, Remove(fs, "drop"))
	require.ErrorIs(t, Stat(fs, "drop", &FileInfo{}), NotFoundErr)
	sb, err := SuperblockOf(fs, DrivePrimary)
	require.NoError(t, err)
	require.Equal(t, uint32(1), sb.FileCount)

	// the decremented count was persisted
	var raw [SuperblockSize]byte
	drive, err := fs.Registry.Drive(DrivePrimary)
	require.NoError(t, err)
	require.NoError(t, drive.Read(0, 0, raw[:]))
	var persisted Superblock
	encode.DecodeSuperblock(&persisted, &raw)
	require.Equal(t, uint32(1), persisted.FileCount)

	fs = d.mount(t)
	require.ErrorIs(t, Stat(fs, "drop", &FileInfo{}), NotFoundErr)
	require.Equal(t, pattern(10), readFile(t, fs, "keep"))
}

func TestRename(t *testing.T) {
	type testCase struct {
		name      string
		from, to  string
		wantedErr error
	}

	for _, testCase := range []testCase{
		{name: "ok", from: "e:a", to: "e:renamed"},
		{name: "cross-drive", from: "e:a", to: "renamed", wantedErr: CrossDriveErr},
		{name: "taken", from: "e:a", to: "e:b", wantedErr: NameTakenErr},
		{name: "missing", from: "e:zzz", to: "e:yyy", wantedErr: NotFoundErr},
		{name: "too-long", from: "e:a", to: "e:" + string(make([]byte, 70)), wantedErr: NameTooLongErr},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			fs, _ := newFormatted(t)
			writeFile(t, fs, "e:a", pattern(20))
			writeFile(t, fs, "e:b", pattern(30))

			err := Rename(fs, testCase.from, testCase.to)
			if testCase.wantedErr != nil {
				require.ErrorIs(t, err, testCase.wantedErr)
				require.Equal(t, pattern(20), readFile(t, fs, "e:a"))
				return
			}
			require.NoError(t, err)
			require.ErrorIs(t, Stat(fs, testCase.from, &FileInfo{}), NotFoundErr)
			require.Equal(t, pattern(20), readFile(t, fs, testCase.to))
		})
	}
}

func TestRenameCrossDriveCode(t *testing.T) {
	fs, _ := newFormatted(t)
	writeFile(t, fs, "a", nil)
	require.Equal(t, CodeCrossDrive, Code(Rename(fs, "a", "e:a")))
	require.Equal(t, CodeNameTaken, Code(Rename(fs, "a", "a")))
}

func TestEnumerator(t *testing.T) {
	fs, _ := newFormatted(t)
	writeFile(t, fs, "e:first", pattern(1))
	writeFile(t, fs, "e:second", pattern(2))
	writeFile(t, fs, "e:third", pattern(3))
	writeFile(t, fs, "primary", pattern(4))
	require.NoError(t, Remove(fs, "e:second"))

	var (
		c     DirCursor
		info  FileInfo
		found []FileInfo
	)
	require.NoError(t, OpenDir(fs, "e:", &c))
	for {
		err := ReadDir(fs, &c, &info)
		if err == stdio.EOF {
			break
		}
		require.NoError(t, err)
		found = append(found, info)
	}
	require.NoError(t, CloseDir(fs, &c))
	require.ErrorIs(t, ReadDir(fs, &c, &info), ClosedErr)

	names := make([]string, len(found))
	for i := range found {
		names[i] = found[i].Name
	}
	if diff := cmp.Diff([]string{"e:first", "e:third"}, names); diff != "" {
		t.Fatalf("unexpected listing (-wanted +found):\n%s", diff)
	}
	require.Equal(t, Byte(3), found[1].Size)
	require.Equal(t, DriveSecondary, found[1].Drive)

	require.NoError(t, OpenDir(fs, "", &c))
	require.NoError(t, ReadDir(fs, &c, &info))
	require.Equal(t, "primary", info.Name)
	require.Equal(t, stdio.EOF, ReadDir(fs, &c, &info))
}

func TestMountRecoversFileCount(t *testing.T) {
	fs, d := newFormatted(t)
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, fs, name, pattern(600))
	}
	used := usedSectors(t, fs, DrivePrimary)

	sb := fs.Cache.Superblock(DrivePrimary)
	sb.FileCount = 0
	sb.LastUID = 1
	require.NoError(t, writeSuperblock(fs, DrivePrimary))

	fs = d.mount(t)
	recovered, err := SuperblockOf(fs, DrivePrimary)
	require.NoError(t, err)
	if diff := cmp.Diff(
		Superblock{Version: SuperblockVersion, LastUID: 3, FileCount: 3},
		recovered,
	); diff != "" {
		t.Fatalf("unexpected superblock (-wanted +found):\n%s", diff)
	}
	require.Equal(t, used, usedSectors(t, fs, DrivePrimary))

	// a stale count left in memory is corrected by the next full scan
	fs.Cache.Superblock(DrivePrimary).FileCount = 1
	require.NoError(t, Stat(fs, "a", &FileInfo{}))
	recovered, err = SuperblockOf(fs, DrivePrimary)
	require.NoError(t, err)
	require.Equal(t, uint32(3), recovered.FileCount)
}

func TestMountVersionMismatch(t *testing.T) {
	fs, d := newFormatted(t)
	fs.Cache.Superblock(DriveSecondary).Version = 2022
	require.NoError(t, writeSuperblock(fs, DriveSecondary))

	err := Mount(d.fileSystem(t))
	require.ErrorIs(t, err, VersionMismatchErr)
	require.Equal(t, CodeVersionMismatch, Code(err))
}

func TestMountDefragmentsPrimary(t *testing.T) {
	d := newTestDevice()
	fs := d.format(t)

	var s Session
	require.NoError(t, Open(fs, "hot", ModeWrite|ModeCreateAlways, &s))
	for i := 0; i < 30; i++ {
		require.NoError(t, Seek(fs, &s, 0))
		_, err := Write(fs, &s, pattern(10))
		require.NoError(t, err)
	}
	require.NoError(t, Close(fs, &s))
	require.Greater(t, d.ftl.UsedPages(), 30)

	fs = d.mount(t)
	// directory sectors 0..3 plus the file's single data sector
	require.Equal(t, 5, d.ftl.UsedPages())
	require.Equal(t, pattern(10), readFile(t, fs, "hot"))
}

func TestMountSkipsDefragBelowThreshold(t *testing.T) {
	d := newTestDevice()
	d.threshold = 90
	fs := d.format(t)
	writeFile(t, fs, "cold", pattern(10))
	writeFile(t, fs, "cold", pattern(10))
	used := d.ftl.UsedPages()

	d.mount(t)
	require.Equal(t, used, d.ftl.UsedPages())
}

func TestUsage(t *testing.T) {
	fs, _ := newFormatted(t)
	writeFile(t, fs, "a", pattern(600))
	writeFile(t, fs, "b", pattern(100))
	usage, err := Usage(fs, DrivePrimary)
	require.NoError(t, err)
	require.Equal(t, 2, usage)

	usage, err = Usage(fs, DriveSecondary)
	require.NoError(t, err)
	require.Zero(t, usage)
}

func TestMountSectorClaimedTwice(t *testing.T) {
	for _, testCase := range []struct {
		name       string
		corrupt    func(t *testing.T, fs *FileSystem)
		wantedUsed int
	}{
		{
			// b's tail links back into its own chain
			name: "cycle",
			corrupt: func(t *testing.T, fs *FileSystem) {
				var slot Slot
				_, err := findSlot(fs, DrivePrimary, "b", &slot)
				require.NoError(t, err)
				var first, second, third ChainHeader
				require.NoError(t, readChainHeader(fs, DrivePrimary, slot.Start, &first))
				require.NoError(t, readChainHeader(fs, DrivePrimary, first.Next, &second))
				require.NoError(t, readChainHeader(fs, DrivePrimary, second.Next, &third))
				third.Next = first.Next
				require.NoError(t, writeChainHeader(fs, DrivePrimary, second.Next, &third))
			},
			wantedUsed: 2 + 3,
		},
		{
			// b's slot duplicates a's start and uid
			name: "shared-start",
			corrupt: func(t *testing.T, fs *FileSystem) {
				var a, b Slot
				_, err := findSlot(fs, DrivePrimary, "a", &a)
				require.NoError(t, err)
				offset, err := findSlot(fs, DrivePrimary, "b", &b)
				require.NoError(t, err)
				b.Start, b.UID, b.Size = a.Start, a.UID, a.Size
				require.NoError(t, writeSlot(fs, DrivePrimary, offset, &b))
			},
			wantedUsed: 2,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			fs, d := newFormatted(t)
			writeFile(t, fs, "a", pattern(600))
			writeFile(t, fs, "b", pattern(1200))
			testCase.corrupt(t, fs)

			var logs bytes.Buffer
			logger, err := logging.New(&logs, "debug")
			require.NoError(t, err)
			d.logger = logger

			fs = d.mount(t)
			require.Contains(t, logs.String(), "sector claimed twice")
			require.Equal(t, testCase.wantedUsed, usedSectors(t, fs, DrivePrimary))
			require.Equal(t, pattern(600), readFile(t, fs, "a"))
		})
	}
}
