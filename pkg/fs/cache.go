package fs

import (
	"github.com/weberc2/sectorfs/pkg/alloc"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// Cache holds the in-memory state shared by all operations: one scratch
// buffer, each drive's sector usage bitmap, and each drive's superblock.
// It is only touched while the filesystem lock is held.
type Cache struct {
	buffer      []byte
	bitmaps     [DriveCount]alloc.Bitmap
	superblocks [DriveCount]Superblock
}

func NewCache(registry *Registry) Cache {
	var c Cache
	c.buffer = make([]byte, registry.MaxSectorSize()+1)
	for i := range registry.drives {
		c.bitmaps[i] = alloc.New(int(registry.drives[i].Geometry.DataEnd))
	}
	return c
}

// Buffer returns the first size bytes of the scratch buffer.
func (c *Cache) Buffer(size Byte) []byte { return c.buffer[:size] }

func (c *Cache) Clear() {
	for i := range c.buffer {
		c.buffer[i] = 0
	}
}

func (c *Cache) Bitmap(id DriveID) alloc.Bitmap { return c.bitmaps[id] }

func (c *Cache) Superblock(id DriveID) *Superblock { return &c.superblocks[id] }

func (c *Cache) Reset() {
	c.Clear()
	for i := range c.bitmaps {
		c.bitmaps[i].Reset()
		c.superblocks[i] = Superblock{}
	}
}
