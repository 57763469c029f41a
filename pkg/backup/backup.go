// Package backup copies a volume's image files to and from an object store.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/weberc2/sectorfs/pkg/objectstore"
)

type Backup struct {
	Store  objectstore.ObjectStore
	Bucket string
	Prefix string
	Logger *log.Logger
}

// New wraps store so that every object is gzipped at rest.
func New(
	store objectstore.ObjectStore,
	bucket string,
	prefix string,
	logger *log.Logger,
) *Backup {
	return &Backup{
		Store:  &objectstore.GzipObjectStore{ObjectStore: store},
		Bucket: bucket,
		Prefix: prefix,
		Logger: logger,
	}
}

func (b *Backup) Key(volumeID, name string) string {
	if b.Prefix == "" {
		return fmt.Sprintf("%s/%s.gz", volumeID, name)
	}
	return fmt.Sprintf("%s/%s/%s.gz", b.Prefix, volumeID, name)
}

// Push uploads dir/name for every name concurrently.
func (b *Backup) Push(
	ctx context.Context,
	volumeID string,
	dir string,
	names []string,
) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		group.Go(func() error {
			return b.push(ctx, volumeID, dir, name)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("pushing volume `%s`: %w", volumeID, err)
	}
	return nil
}

func (b *Backup) push(ctx context.Context, volumeID, dir, name string) error {
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("pushing `%s`: %w", name, err)
	}
	defer file.Close()

	key := b.Key(volumeID, name)
	if err := b.Store.PutObject(ctx, b.Bucket, key, file); err != nil {
		return fmt.Errorf("pushing `%s`: %w", name, err)
	}
	b.logger().Info("pushed", "bucket", b.Bucket, "key", key)
	return nil
}

// Pull downloads every name into dir concurrently. Each file is written to
// a temporary name first and renamed into place once complete.
func (b *Backup) Pull(
	ctx context.Context,
	volumeID string,
	dir string,
	names []string,
) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		group.Go(func() error {
			return b.pull(ctx, volumeID, dir, name)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("pulling volume `%s`: %w", volumeID, err)
	}
	return nil
}

func (b *Backup) pull(ctx context.Context, volumeID, dir, name string) error {
	key := b.Key(volumeID, name)
	body, err := b.Store.GetObject(ctx, b.Bucket, key)
	if err != nil {
		return fmt.Errorf("pulling `%s`: %w", name, err)
	}
	defer body.Close()

	path := filepath.Join(dir, name)
	tmp, err := os.CreateTemp(dir, name+".*")
	if err != nil {
		return fmt.Errorf("pulling `%s`: %w", name, err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("pulling `%s`: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pulling `%s`: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pulling `%s`: %w", name, err)
	}
	b.logger().Info("pulled", "bucket", b.Bucket, "key", key)
	return nil
}

func (b *Backup) logger() *log.Logger {
	if b.Logger == nil {
		return log.Default()
	}
	return b.Logger
}
