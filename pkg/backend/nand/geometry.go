package nand

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/types"
)

// Geometry describes the simulated flash array. Every page carries a small
// spare area after its data holding the page's logical sector, its state,
// and a programming sequence number.
type Geometry struct {
	Blocks         int
	PagesPerBlock  int
	PageSize       types.Byte
	LogicalSectors int
}

const (
	spareSize types.Byte = 8

	spareLogicalStart  = 0
	spareStateStart    = 2
	spareSequenceStart = 4
)

const InvalidGeometryErr types.ConstError = "invalid nand geometry"

func (g *Geometry) Validate() error {
	if g.Blocks < 3 || g.PagesPerBlock < 1 || g.PageSize < 1 {
		return fmt.Errorf(
			"%w: need at least 3 blocks of non-empty pages; found `%d` "+
				"blocks, `%d` pages per block, `%d` byte pages",
			InvalidGeometryErr,
			g.Blocks,
			g.PagesPerBlock,
			g.PageSize,
		)
	}
	// two blocks of headroom keep garbage collection able to make progress
	if max := (g.Blocks - 2) * g.PagesPerBlock; g.LogicalSectors < 1 ||
		g.LogicalSectors > max || g.LogicalSectors > 0xFFFF {
		return fmt.Errorf(
			"%w: logical sectors `%d` must be in [1, %d]",
			InvalidGeometryErr,
			g.LogicalSectors,
			max,
		)
	}
	return nil
}

func (g *Geometry) TotalPages() int { return g.Blocks * g.PagesPerBlock }

func (g *Geometry) pageStride() types.Byte { return g.PageSize + spareSize }

// VolumeSize is the number of bytes the raw array occupies.
func (g *Geometry) VolumeSize() types.Byte {
	return types.Byte(g.TotalPages()) * g.pageStride()
}

func (g *Geometry) pageAddress(page int) types.Byte {
	return types.Byte(page) * g.pageStride()
}

func (g *Geometry) spareAddress(page int) types.Byte {
	return g.pageAddress(page) + g.PageSize
}
