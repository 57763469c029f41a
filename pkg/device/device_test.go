package device

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weberc2/sectorfs/pkg/config"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/logging"
	"github.com/weberc2/sectorfs/pkg/manifest"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := config.Default()
	c.ImageDir = t.TempDir()
	c.NAND = config.NANDConfig{
		Blocks:           8,
		PagesPerBlock:    16,
		PageSize:         512,
		DirectorySectors: 4,
		LogicalSectors:   96,
	}
	c.EEPROM = config.EEPROMConfig{
		Size:             64 * Kibibyte,
		PageSize:         256,
		SectorSize:       512,
		DirectorySectors: 8,
		DataEnd:          128,
	}
	return &c
}

func put(t *testing.T, fileSystem *fs.FileSystem, name string, data []byte) {
	t.Helper()
	f, err := fs.OpenFile(fileSystem, name, fs.ModeWrite|fs.ModeCreateAlways)
	require.NoError(t, err)
	_, err = io.Copy(f, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func get(t *testing.T, fileSystem *fs.FileSystem, name string) []byte {
	t.Helper()
	f, err := fs.OpenFile(fileSystem, name, fs.ModeRead)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return data
}

func TestOpenCreateAndReopen(t *testing.T) {
	for _, testCase := range []struct {
		name       string
		passphrase string
	}{
		{name: "plain"},
		{name: "encrypted", passphrase: "glacier-trombone-vertigo-51-harbor"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			c := testConfig(t)
			c.Passphrase = testCase.passphrase
			data := bytes.Repeat([]byte("sector"), 300)

			d, err := Open(c, logging.Discard(), true)
			require.NoError(t, err)
			require.NoError(t, fs.Format(d.FileSystem))
			put(t, d.FileSystem, "log.txt", data)
			put(t, d.FileSystem, "e:cal.bin", data[:100])
			volumeID := d.Manifest.VolumeID
			require.NoError(t, d.Close())

			raw, err := os.ReadFile(filepath.Join(c.ImageDir, NANDImage))
			require.NoError(t, err)
			require.Equal(
				t,
				testCase.passphrase == "",
				bytes.Contains(raw, []byte("sectorsector")),
			)

			d, err = Open(c, logging.Discard(), false)
			require.NoError(t, err)
			defer d.Close()
			require.Equal(t, volumeID, d.Manifest.VolumeID)
			require.NoError(t, fs.Mount(d.FileSystem))
			require.Equal(t, data, get(t, d.FileSystem, "log.txt"))
			require.Equal(t, data[:100], get(t, d.FileSystem, "e:cal.bin"))
		})
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(testConfig(t), logging.Discard(), false)
	require.ErrorIs(t, err, ImageMissingErr)
}

func TestOpenGeometryMismatch(t *testing.T) {
	c := testConfig(t)
	d, err := Open(c, logging.Discard(), true)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	c.EEPROM.DataEnd = 64
	_, err = Open(c, logging.Discard(), false)
	require.ErrorIs(t, err, manifest.GeometryMismatchErr)
}
