package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "esfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, Sector(1920), c.PrimaryGeometry().DataEnd)
	require.Equal(t, Sector(8), c.SecondaryGeometry().DataStart)
}

func TestLoadLayers(t *testing.T) {
	path := writeConfig(t, `
imageDir: /var/lib/esfs
logLevel: debug
eeprom:
  dataEnd: 200
backup:
  bucket: from-file
`)
	t.Setenv("ESFS_LOG_LEVEL", "warn")
	t.Setenv("ESFS_BACKUP_BUCKET", "from-env")
	t.Setenv("ESFS_NAND_LOGICAL_SECTORS", "1800")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/esfs", c.ImageDir)
	require.Equal(t, "warn", c.LogLevel)
	require.Equal(t, 200, c.EEPROM.DataEnd)
	require.Equal(t, "from-env", c.Backup.Bucket)
	require.Equal(t, 1800, c.NAND.LogicalSectors)
	// untouched fields keep their defaults
	require.Equal(t, 64, c.NAND.Blocks)
	require.Equal(t, "esfs", c.Backup.Prefix)
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), *c)
}

func TestLoadRejects(t *testing.T) {
	for _, testCase := range []struct {
		name     string
		contents string
	}{
		{"unknown-field", "imageDirectory: /tmp\n"},
		{"data-beyond-eeprom", "eeprom:\n  dataEnd: 300\n"},
		{"too-many-logical-sectors", "nand:\n  logicalSectors: 2000\n"},
		{"weak-passphrase", "passphrase: password\n"},
		{"bad-threshold", "defragThresholdPercent: 150\n"},
		{"empty-image-dir", "imageDir: \"\"\n"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, testCase.contents))
			require.Error(t, err)
		})
	}
}

func TestCheckPassphrase(t *testing.T) {
	require.ErrorIs(t, CheckPassphrase("esfs"), PassphraseTooSimpleErr)
	require.NoError(t, CheckPassphrase("glacier-trombone-vertigo-51-harbor"))
}

func TestFilePath(t *testing.T) {
	t.Setenv("ESFS_CONFIG_FILE", "")
	require.Equal(t, "/etc/esfs.yaml", FilePath("/etc/esfs.yaml"))
	t.Setenv("ESFS_CONFIG_FILE", "/from/env.yaml")
	require.Equal(t, "/from/env.yaml", FilePath("/etc/esfs.yaml"))
}
