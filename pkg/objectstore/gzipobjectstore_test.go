package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGzipObjectStore(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryObjectStore()
	objectStore := GzipObjectStore{inner}
	if err := objectStore.PutObject(
		ctx,
		"my-bucket",
		"my-key",
		strings.NewReader("my-data"),
	); err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}

	body, err := objectStore.GetObject(ctx, "my-bucket", "my-key")
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Unexpected err: %v", err)
	}
	if string(data) != "my-data" {
		t.Fatalf("wanted 'my-data'; found '%s'", data)
	}
}

func TestGzipShrinksErasedImages(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryObjectStore()
	objectStore := GzipObjectStore{inner}
	image := bytes.Repeat([]byte{0xFF}, 64*1024)
	require.NoError(t, objectStore.PutObject(ctx, "b", "image", bytes.NewReader(image)))

	size, found := inner.Size("b", "image")
	require.True(t, found)
	require.Less(t, size, 1024)
}

func TestMemoryObjectStoreNotFound(t *testing.T) {
	ctx := context.Background()
	objectStore := &GzipObjectStore{NewMemoryObjectStore()}
	_, err := objectStore.GetObject(ctx, "b", "missing")

	var notFound *ObjectNotFoundErr
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "missing", notFound.Key)

	inner := NewMemoryObjectStore()
	require.NoError(t, inner.PutObject(ctx, "b", "p/1", strings.NewReader("1")))
	require.NoError(t, inner.PutObject(ctx, "b", "p/0", strings.NewReader("0")))
	require.NoError(t, inner.PutObject(ctx, "b", "q/0", strings.NewReader("0")))
	keys, err := inner.ListObjects(ctx, "b", "p/")
	require.NoError(t, err)
	require.Equal(t, []string{"p/0", "p/1"}, keys)
	require.NoError(t, inner.DeleteObject(ctx, "b", "p/0"))
	require.True(t, errors.As(inner.DeleteObject(ctx, "b", "p/0"), &notFound))
}
