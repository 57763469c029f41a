// Package nand implements a wear-leveling flash translation layer over a
// simulated NAND array. Logical sectors are written out of place; stale
// pages are reclaimed by erasing whole blocks.
package nand

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/weberc2/sectorfs/pkg/backend"
	"github.com/weberc2/sectorfs/pkg/io"
	"github.com/weberc2/sectorfs/pkg/types"
)

type pageState uint8

const (
	pageFree  pageState = 0xFF
	pageValid pageState = 0x0F
	pageStale pageState = 0x00
)

const (
	unmapped = -1
	noBlock  = -1
)

const NoSpaceErr types.ConstError = "no free flash pages"

type page struct {
	state   pageState
	logical types.Sector
}

type block struct {
	// pages are programmed in order; next is the first free page
	next   int
	valid  int
	stale  int
	erases uint32
}

type FTL struct {
	volume   io.Volume
	geometry Geometry

	mapping []int
	pages   []page
	blocks  []block
	active  int
	free    int
	seq     uint32
}

var (
	_ backend.Backend      = (*FTL)(nil)
	_ backend.Defragmenter = (*FTL)(nil)
)

func New(volume io.Volume, geometry Geometry) (*FTL, error) {
	if err := geometry.Validate(); err != nil {
		return nil, fmt.Errorf("creating flash translation layer: %w", err)
	}
	if volume.Size() < geometry.VolumeSize() {
		return nil, fmt.Errorf(
			"creating flash translation layer: volume holds `%d` bytes; "+
				"geometry needs `%d`",
			volume.Size(),
			geometry.VolumeSize(),
		)
	}
	return &FTL{
		volume:   volume,
		geometry: geometry,
		mapping:  make([]int, geometry.LogicalSectors),
		pages:    make([]page, geometry.TotalPages()),
		blocks:   make([]block, geometry.Blocks),
		active:   noBlock,
	}, nil
}

func (ftl *FTL) Capacity() int { return ftl.geometry.LogicalSectors }

func (ftl *FTL) SectorSize() types.Byte { return ftl.geometry.PageSize }

func (ftl *FTL) TotalPages() int { return ftl.geometry.TotalPages() }

// UsedPages counts pages holding either live or stale data.
func (ftl *FTL) UsedPages() int { return ftl.TotalPages() - ftl.free }

// EraseCount reports how many times a block has been erased since Init.
func (ftl *FTL) EraseCount(block int) uint32 { return ftl.blocks[block].erases }

func (ftl *FTL) Init(format bool) error {
	for i := range ftl.mapping {
		ftl.mapping[i] = unmapped
	}
	for i := range ftl.blocks {
		ftl.blocks[i] = block{}
	}
	for i := range ftl.pages {
		ftl.pages[i] = page{state: pageFree}
	}
	ftl.active = noBlock
	ftl.free = ftl.TotalPages()
	ftl.seq = 0

	if format {
		// erase credits each block's pages back
		ftl.free = 0
		for b := range ftl.blocks {
			if err := ftl.erase(b); err != nil {
				return fmt.Errorf("formatting flash: %w", err)
			}
		}
		return nil
	}
	if err := ftl.scan(); err != nil {
		return fmt.Errorf("rebuilding flash translation map: %w", err)
	}
	return nil
}

// scan rebuilds the logical map from the spare areas. Where two valid pages
// claim the same logical sector the later sequence number wins and the
// other is marked stale.
func (ftl *FTL) scan() error {
	sequences := make([]uint32, ftl.TotalPages())
	var spare [spareSize]byte
	for p := range ftl.pages {
		if err := ftl.volume.ReadAt(ftl.geometry.spareAddress(p), spare[:]); err != nil {
			return fmt.Errorf("reading spare area of page `%d`: %w", p, err)
		}
		state := pageState(spare[spareStateStart])
		logical := int(binary.LittleEndian.Uint16(spare[spareLogicalStart:]))
		sequences[p] = binary.LittleEndian.Uint32(spare[spareSequenceStart:])
		b := &ftl.blocks[p/ftl.geometry.PagesPerBlock]

		if state == pageFree {
			continue
		}
		ftl.free--
		b.next = p%ftl.geometry.PagesPerBlock + 1
		if state != pageValid || logical >= len(ftl.mapping) {
			ftl.pages[p].state = pageStale
			b.stale++
			continue
		}
		if sequences[p] > ftl.seq {
			ftl.seq = sequences[p]
		}

		ftl.pages[p] = page{state: pageValid, logical: types.Sector(logical)}
		b.valid++
		if previous := ftl.mapping[logical]; previous != unmapped {
			older := p
			if sequences[previous] < sequences[p] {
				older = previous
				ftl.mapping[logical] = p
			}
			if err := ftl.markStale(older); err != nil {
				return err
			}
			continue
		}
		ftl.mapping[logical] = p
	}
	return nil
}

func (ftl *FTL) ReadSector(sector types.Sector, offset types.Byte, p []byte) error {
	if err := ftl.check(sector, offset, p); err != nil {
		return fmt.Errorf("reading logical sector `%d`: %w", sector, err)
	}
	physical := ftl.mapping[sector]
	if physical == unmapped {
		for i := range p {
			p[i] = 0xFF
		}
		return nil
	}
	if err := ftl.volume.ReadAt(
		ftl.geometry.pageAddress(physical)+offset,
		p,
	); err != nil {
		return fmt.Errorf(
			"reading logical sector `%d` from page `%d`: %w",
			sector,
			physical,
			err,
		)
	}
	return nil
}

// WriteSector rewrites the whole page holding the sector into a fresh page.
func (ftl *FTL) WriteSector(sector types.Sector, offset types.Byte, p []byte) error {
	if err := ftl.check(sector, offset, p); err != nil {
		return fmt.Errorf("writing logical sector `%d`: %w", sector, err)
	}
	data := make([]byte, ftl.geometry.PageSize)
	if err := ftl.ReadSector(sector, 0, data); err != nil {
		return err
	}
	copy(data[offset:], p)

	physical, err := ftl.allocate(noBlock, true)
	if err != nil {
		return fmt.Errorf("writing logical sector `%d`: %w", sector, err)
	}
	// allocation may have relocated the old copy, so look it up afterwards
	old := ftl.mapping[sector]
	if err := ftl.program(physical, sector, data); err != nil {
		return fmt.Errorf("writing logical sector `%d`: %w", sector, err)
	}
	if old != unmapped {
		if err := ftl.markStale(old); err != nil {
			return fmt.Errorf("writing logical sector `%d`: %w", sector, err)
		}
	}
	return nil
}

func (ftl *FTL) Release(sector types.Sector) error {
	if int(sector) >= len(ftl.mapping) {
		return fmt.Errorf(
			"releasing logical sector `%d`: %w",
			sector,
			backend.OutOfBoundsErr,
		)
	}
	if physical := ftl.mapping[sector]; physical != unmapped {
		ftl.mapping[sector] = unmapped
		if err := ftl.markStale(physical); err != nil {
			return fmt.Errorf("releasing logical sector `%d`: %w", sector, err)
		}
	}
	return nil
}

// Defrag erases every block holding stale pages whose live pages fit
// elsewhere, most-stale first.
func (ftl *FTL) Defrag() error {
	victims := make([]int, 0, len(ftl.blocks))
	for b := range ftl.blocks {
		if ftl.blocks[b].stale > 0 {
			victims = append(victims, b)
		}
	}
	sort.SliceStable(victims, func(i, j int) bool {
		return ftl.blocks[victims[i]].stale > ftl.blocks[victims[j]].stale
	})
	for _, b := range victims {
		if _, err := ftl.reclaim(b); err != nil {
			return fmt.Errorf("defragmenting flash: %w", err)
		}
	}
	return nil
}

func (ftl *FTL) check(sector types.Sector, offset types.Byte, p []byte) error {
	if int(sector) >= len(ftl.mapping) {
		return fmt.Errorf(
			"%w: sector `%d` beyond capacity `%d`",
			backend.OutOfBoundsErr,
			sector,
			len(ftl.mapping),
		)
	}
	if offset < 0 || offset+types.Byte(len(p)) > ftl.geometry.PageSize {
		return fmt.Errorf(
			"%w: `%d` bytes at offset `%d` in a `%d` byte page",
			backend.OutOfBoundsErr,
			len(p),
			offset,
			ftl.geometry.PageSize,
		)
	}
	return nil
}

// allocate returns a free physical page outside of the excluded block.
// Ordinary writes leave one block's worth of pages in reserve for garbage
// collection and collect when they would dip into it.
func (ftl *FTL) allocate(exclude int, keepReserve bool) (int, error) {
	if keepReserve {
		for ftl.free <= ftl.geometry.PagesPerBlock {
			reclaimed, err := ftl.collect()
			if err != nil {
				return 0, err
			}
			if !reclaimed {
				return 0, NoSpaceErr
			}
		}
	}

	if ftl.active != noBlock && ftl.active != exclude &&
		ftl.blocks[ftl.active].next < ftl.geometry.PagesPerBlock {
		return ftl.take(ftl.active), nil
	}

	// prefer an erased block with the fewest erases, then any block with
	// free trailing pages
	candidate := noBlock
	for b := range ftl.blocks {
		if b == exclude || ftl.blocks[b].next != 0 {
			continue
		}
		if candidate == noBlock ||
			ftl.blocks[b].erases < ftl.blocks[candidate].erases {
			candidate = b
		}
	}
	if candidate == noBlock {
		for b := range ftl.blocks {
			if b != exclude && ftl.blocks[b].next < ftl.geometry.PagesPerBlock {
				candidate = b
				break
			}
		}
	}
	if candidate == noBlock {
		return 0, NoSpaceErr
	}
	ftl.active = candidate
	return ftl.take(candidate), nil
}

func (ftl *FTL) take(b int) int {
	p := b*ftl.geometry.PagesPerBlock + ftl.blocks[b].next
	ftl.blocks[b].next++
	ftl.free--
	return p
}

// collect reclaims the single most-stale block whose live pages fit in the
// remaining free pages.
func (ftl *FTL) collect() (bool, error) {
	victim := noBlock
	for b := range ftl.blocks {
		if ftl.blocks[b].stale == 0 || !ftl.fits(b) {
			continue
		}
		if victim == noBlock || ftl.blocks[b].stale > ftl.blocks[victim].stale {
			victim = b
		}
	}
	if victim == noBlock {
		return false, nil
	}
	return ftl.reclaim(victim)
}

func (ftl *FTL) fits(b int) bool {
	freeInBlock := ftl.geometry.PagesPerBlock - ftl.blocks[b].next
	return ftl.blocks[b].valid <= ftl.free-freeInBlock
}

func (ftl *FTL) reclaim(b int) (bool, error) {
	if ftl.blocks[b].stale == 0 || !ftl.fits(b) {
		return false, nil
	}
	if ftl.active == b {
		ftl.active = noBlock
	}

	data := make([]byte, ftl.geometry.PageSize)
	first := b * ftl.geometry.PagesPerBlock
	for p := first; p < first+ftl.geometry.PagesPerBlock; p++ {
		if ftl.pages[p].state != pageValid {
			continue
		}
		logical := ftl.pages[p].logical
		if err := ftl.volume.ReadAt(ftl.geometry.pageAddress(p), data); err != nil {
			return false, fmt.Errorf("relocating page `%d`: %w", p, err)
		}
		destination, err := ftl.allocate(b, false)
		if err != nil {
			return false, fmt.Errorf("relocating page `%d`: %w", p, err)
		}
		if err := ftl.program(destination, logical, data); err != nil {
			return false, fmt.Errorf("relocating page `%d`: %w", p, err)
		}
		ftl.pages[p].state = pageStale
		ftl.blocks[b].valid--
		ftl.blocks[b].stale++
	}

	// the block's unprogrammed pages were already counted as free
	ftl.free -= ftl.geometry.PagesPerBlock - ftl.blocks[b].next
	if err := ftl.erase(b); err != nil {
		return false, err
	}
	return true, nil
}

func (ftl *FTL) erase(b int) error {
	stride := ftl.geometry.pageStride()
	erased := make([]byte, types.Byte(ftl.geometry.PagesPerBlock)*stride)
	for i := range erased {
		erased[i] = 0xFF
	}
	first := b * ftl.geometry.PagesPerBlock
	if err := ftl.volume.WriteAt(ftl.geometry.pageAddress(first), erased); err != nil {
		return fmt.Errorf("erasing block `%d`: %w", b, err)
	}
	for p := first; p < first+ftl.geometry.PagesPerBlock; p++ {
		ftl.pages[p] = page{state: pageFree}
	}
	ftl.blocks[b] = block{erases: ftl.blocks[b].erases + 1}
	ftl.free += ftl.geometry.PagesPerBlock
	return nil
}

func (ftl *FTL) program(p int, logical types.Sector, data []byte) error {
	ftl.seq++
	var spare [spareSize]byte
	binary.LittleEndian.PutUint16(spare[spareLogicalStart:], uint16(logical))
	spare[spareStateStart] = byte(pageValid)
	spare[spareStateStart+1] = 0xFF
	binary.LittleEndian.PutUint32(spare[spareSequenceStart:], ftl.seq)

	if err := ftl.volume.WriteAt(ftl.geometry.pageAddress(p), data); err != nil {
		return fmt.Errorf("programming page `%d`: %w", p, err)
	}
	if err := ftl.volume.WriteAt(ftl.geometry.spareAddress(p), spare[:]); err != nil {
		return fmt.Errorf("programming spare area of page `%d`: %w", p, err)
	}
	ftl.pages[p] = page{state: pageValid, logical: logical}
	ftl.blocks[p/ftl.geometry.PagesPerBlock].valid++
	ftl.mapping[logical] = p
	return nil
}

func (ftl *FTL) markStale(p int) error {
	if ftl.pages[p].state != pageValid {
		return nil
	}
	if err := ftl.volume.WriteAt(
		ftl.geometry.spareAddress(p)+spareStateStart,
		[]byte{byte(pageStale)},
	); err != nil {
		return fmt.Errorf("marking page `%d` stale: %w", p, err)
	}
	ftl.pages[p].state = pageStale
	b := &ftl.blocks[p/ftl.geometry.PagesPerBlock]
	b.valid--
	b.stale++
	return nil
}
