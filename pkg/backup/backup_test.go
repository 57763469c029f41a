package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weberc2/sectorfs/pkg/logging"
	"github.com/weberc2/sectorfs/pkg/objectstore"
)

const volumeID = "0b8e5d36-8a52-4a8c-a1a4-5a0f0d7e0c11"

func TestKey(t *testing.T) {
	b := Backup{Prefix: "esfs"}
	require.Equal(t, "esfs/"+volumeID+"/nand.img.gz", b.Key(volumeID, "nand.img"))
	b.Prefix = ""
	require.Equal(t, volumeID+"/nand.img.gz", b.Key(volumeID, "nand.img"))
}

func TestPushPull(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryObjectStore()
	b := New(store, "bucket", "esfs", logging.Discard())

	files := map[string][]byte{
		"nand.img":      bytes.Repeat([]byte{0xFF}, 64*1024),
		"eeprom.img":    append(bytes.Repeat([]byte{0xFF}, 4096), "hello"...),
		"manifest.yaml": []byte("volumeID: " + volumeID + "\n"),
	}
	var names []string
	src := t.TempDir()
	for name, data := range files {
		names = append(names, name)
		require.NoError(t, os.WriteFile(filepath.Join(src, name), data, 0o644))
	}

	require.NoError(t, b.Push(ctx, volumeID, src, names))

	// erased images compress well
	size, found := store.Size("bucket", b.Key(volumeID, "nand.img"))
	require.True(t, found)
	require.Less(t, size, 1024)

	dst := t.TempDir()
	require.NoError(t, b.Pull(ctx, volumeID, dst, names))
	for name, wanted := range files {
		found, err := os.ReadFile(filepath.Join(dst, name))
		require.NoError(t, err)
		require.Equal(t, wanted, found, name)
	}
}

func TestPullMissing(t *testing.T) {
	b := New(objectstore.NewMemoryObjectStore(), "bucket", "esfs", logging.Discard())
	dst := t.TempDir()
	err := b.Pull(context.Background(), volumeID, dst, []string{"nand.img"})
	var notFound *objectstore.ObjectNotFoundErr
	require.True(t, errors.As(err, &notFound))

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPushMissingFile(t *testing.T) {
	b := New(objectstore.NewMemoryObjectStore(), "bucket", "esfs", logging.Discard())
	err := b.Push(context.Background(), volumeID, t.TempDir(), []string{"nand.img"})
	require.ErrorIs(t, err, os.ErrNotExist)
}
