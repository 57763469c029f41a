package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/weberc2/sectorfs/pkg/config"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func TestSaveLoad(t *testing.T) {
	c := config.Default()
	wanted := New(&c)
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, wanted.Save(path))

	found, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(wanted, *found); diff != "" {
		t.Fatalf("unexpected manifest (-want +got):\n%s", diff)
	}
	require.NoError(t, found.Check(&c))

	salt, err := found.Salt()
	require.NoError(t, err)
	require.Len(t, salt, 16)
}

func TestVolumeIDsDiffer(t *testing.T) {
	c := config.Default()
	require.NotEqual(t, New(&c).VolumeID, New(&c).VolumeID)
}

func TestCheck(t *testing.T) {
	c := config.Default()
	m := New(&c)

	resized := c
	resized.EEPROM.DataEnd = 128
	require.ErrorIs(t, m.Check(&resized), GeometryMismatchErr)

	reblocked := c
	reblocked.NAND.Blocks = 32
	require.ErrorIs(t, m.Check(&reblocked), GeometryMismatchErr)

	old := m
	old.Version = 2022
	require.ErrorIs(t, old.Check(&c), VersionMismatchErr)
}

func TestLoadRejectsBadVolumeID(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(
		path,
		[]byte("volumeID: not-a-uuid\nversion: 2023\n"),
		0o644,
	))
	_, err := Load(path)
	require.Error(t, err)
}
