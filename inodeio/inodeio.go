// Package inodeio implements direct/indirect data-block addressing and the
// read/write/modify/shrink/release operations layered on top of a single
// inode, grounded line-for-line on the original implementation's
// inode_manip.c.
package inodeio

import (
	"encoding/binary"

	"github.com/yusufbadar/unixfs/allocator"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/retcode"
)

const (
	directCount   = image.DirectBlockCount
	blockSize     = image.DataBlockSize
	indexSlots    = image.IndirectIndexCount
	nextIdxOffset = image.NextIndirectOffset
)

// blockOf returns a byte slice over data block idx within img's arena.
func blockOf(img *image.Image, idx uint32) []byte {
	start := uint64(idx) * blockSize
	return img.DBlocks[start : start+blockSize]
}

func readIndexSlot(img *image.Image, indexBlock uint32, slot int) uint32 {
	return binary.LittleEndian.Uint32(blockOf(img, indexBlock)[slot*4 : slot*4+4])
}

func writeIndexSlot(img *image.Image, indexBlock uint32, slot int, value uint32) {
	binary.LittleEndian.PutUint32(blockOf(img, indexBlock)[slot*4:slot*4+4], value)
}

func readNextIndexBlock(img *image.Image, indexBlock uint32) uint32 {
	return binary.LittleEndian.Uint32(blockOf(img, indexBlock)[nextIdxOffset : nextIdxOffset+4])
}

func writeNextIndexBlock(img *image.Image, indexBlock, next uint32) {
	binary.LittleEndian.PutUint32(blockOf(img, indexBlock)[nextIdxOffset:nextIdxOffset+4], next)
}

// getDataBlockIndex resolves the blockIndex'th data block of rec (0-based,
// across both direct and indirect regions), grounded on
// get_data_block_index.
func getDataBlockIndex(img *image.Image, rec image.Record, blockIndex uint64) (uint32, bool) {
	if blockIndex < directCount {
		v := rec.Direct[blockIndex]
		return v, v != 0
	}

	indirectIndex := blockIndex - directCount
	if rec.IndirectBlk == 0 {
		return 0, false
	}

	current := rec.IndirectBlk
	rem := indirectIndex
	for rem >= indexSlots {
		if current == 0 || current >= img.DBlockCount {
			return 0, false
		}
		next := readNextIndexBlock(img, current)
		if next == 0 {
			return 0, false
		}
		current = next
		rem -= indexSlots
	}

	if current == 0 || current >= img.DBlockCount {
		return 0, false
	}
	v := readIndexSlot(img, current, int(rem))
	return v, v != 0
}

// blocksNeeded returns how many total data blocks a file of size fileSize
// requires.
func blocksNeeded(fileSize uint64) uint64 {
	return (fileSize + blockSize - 1) / blockSize
}

// indexBlocksNeeded returns how many index blocks are required to hold
// dataBlocks total data-block pointers beyond the direct region.
func indexBlocksNeeded(dataBlocks uint64) uint64 {
	if dataBlocks <= directCount {
		return 0
	}
	indirect := dataBlocks - directCount
	return (indirect + indexSlots - 1) / indexSlots
}

// allocateBlocks claims numData data blocks and numIndex index blocks,
// zeroing the index blocks, or rolls back and returns
// ErrInsufficientDBlocks if the image cannot satisfy the request — grounded
// on allocate_needed_blocks.
func allocateBlocks(img *image.Image, numData, numIndex uint64) (dataIdx, indexIdx []uint32, err error) {
	if numData+numIndex > uint64(allocator.AvailableDBlocks(img)) {
		return nil, nil, retcode.ErrInsufficientDBlocks
	}

	dataIdx = make([]uint32, 0, numData)
	indexIdx = make([]uint32, 0, numIndex)

	rollback := func() {
		for _, b := range dataIdx {
			_ = allocator.ReleaseDBlock(img, b)
		}
		for _, b := range indexIdx {
			_ = allocator.ReleaseDBlock(img, b)
		}
	}

	for i := uint64(0); i < numData; i++ {
		b, e := allocator.ClaimDBlock(img)
		if e != nil {
			rollback()
			return nil, nil, retcode.ErrInsufficientDBlocks
		}
		dataIdx = append(dataIdx, b)
	}

	for i := uint64(0); i < numIndex; i++ {
		b, e := allocator.ClaimDBlock(img)
		if e != nil {
			rollback()
			return nil, nil, retcode.ErrInsufficientDBlocks
		}
		blk := blockOf(img, b)
		for i := range blk {
			blk[i] = 0
		}
		indexIdx = append(indexIdx, b)
	}

	return dataIdx, indexIdx, nil
}

// WriteData appends n bytes from data to the end of the inode's content,
// allocating data and index blocks as necessary. If the image cannot
// satisfy the write, the inode and image are left unmodified, grounded on
// inode_write_data.
func WriteData(img *image.Image, idx uint16, data []byte) error {
	n := uint64(len(data))
	if n == 0 {
		return nil
	}

	rec := img.Inodes[idx].Decode()
	currentSize := rec.Size
	newSize := currentSize + n

	currentDataBlocks := blocksNeeded(currentSize)
	requiredDataBlocks := blocksNeeded(newSize)
	additionalData := uint64(0)
	if requiredDataBlocks > currentDataBlocks {
		additionalData = requiredDataBlocks - currentDataBlocks
	}

	currentIndexBlocks := indexBlocksNeeded(currentDataBlocks)
	requiredIndexBlocks := indexBlocksNeeded(requiredDataBlocks)
	additionalIndex := uint64(0)
	if requiredIndexBlocks > currentIndexBlocks {
		additionalIndex = requiredIndexBlocks - currentIndexBlocks
	}

	dataIdx, indexIdx, err := allocateBlocks(img, additionalData, additionalIndex)
	if err != nil {
		return err
	}

	dataCtr, indexCtr := 0, 0
	remaining := data

	if currentSize > 0 {
		offsetInLastBlock := currentSize % blockSize
		if offsetInLastBlock != 0 {
			spaceInBlock := blockSize - offsetInLastBlock
			copyAmount := spaceInBlock
			if uint64(len(remaining)) < copyAmount {
				copyAmount = uint64(len(remaining))
			}
			lastBlockIdx, ok := getDataBlockIndex(img, rec, currentDataBlocks-1)
			if ok {
				copy(blockOf(img, lastBlockIdx)[offsetInLastBlock:], remaining[:copyAmount])
			}
			remaining = remaining[copyAmount:]
		}
	}

	blockWriteIndex := currentDataBlocks
	for len(remaining) > 0 {
		targetBlock := dataIdx[dataCtr]
		dataCtr++

		if blockWriteIndex < directCount {
			rec.Direct[blockWriteIndex] = targetBlock
		} else {
			indirectDataIndex := blockWriteIndex - directCount
			indexBlockLevel := indirectDataIndex / indexSlots
			slotInIndexBlock := int(indirectDataIndex % indexSlots)

			currentIndexBlock := rec.IndirectBlk
			if currentIndexBlock == 0 {
				currentIndexBlock = indexIdx[indexCtr]
				indexCtr++
				rec.IndirectBlk = currentIndexBlock
			}

			for level := uint64(0); level < indexBlockLevel; level++ {
				next := readNextIndexBlock(img, currentIndexBlock)
				if next == 0 {
					next = indexIdx[indexCtr]
					indexCtr++
					writeNextIndexBlock(img, currentIndexBlock, next)
				}
				currentIndexBlock = next
			}

			writeIndexSlot(img, currentIndexBlock, slotInIndexBlock, targetBlock)
		}

		copyAmount := uint64(blockSize)
		if uint64(len(remaining)) < copyAmount {
			copyAmount = uint64(len(remaining))
		}
		copy(blockOf(img, targetBlock), remaining[:copyAmount])
		remaining = remaining[copyAmount:]
		blockWriteIndex++
	}

	rec.Size = newSize
	img.Inodes[idx].Encode(rec)
	return nil
}

// ReadData reads up to len(buffer) bytes starting at offset into buffer and
// returns the number of bytes actually read, grounded on inode_read_data.
func ReadData(img *image.Image, idx uint16, offset uint64, buffer []byte) (int, error) {
	rec := img.Inodes[idx].Decode()
	if offset >= rec.Size || len(buffer) == 0 {
		return 0, nil
	}

	readLimit := rec.Size - offset
	total := uint64(len(buffer))
	if total > readLimit {
		total = readLimit
	}

	remaining := total
	cur := offset
	written := uint64(0)

	for remaining > 0 {
		blockIndex := cur / blockSize
		offsetInBlock := cur % blockSize
		readFromThis := blockSize - offsetInBlock
		if readFromThis > remaining {
			readFromThis = remaining
		}

		blockIdx, ok := getDataBlockIndex(img, rec, blockIndex)
		if !ok {
			return int(written), retcode.ErrSystemError
		}

		copy(buffer[written:written+readFromThis], blockOf(img, blockIdx)[offsetInBlock:offsetInBlock+readFromThis])

		written += readFromThis
		remaining -= readFromThis
		cur += readFromThis
	}

	return int(written), nil
}

// ModifyData overwrites n bytes of the inode's content starting at offset,
// writing any portion past the current end of file via WriteData.
//
// The overwrite is applied before the append; if the append subsequently
// fails with ErrInsufficientDBlocks, the already-applied overwrite is NOT
// rolled back. This mirrors the original implementation's inode_modify_data
// exactly and is a known, documented non-atomicity, not a bug to silently
// fix here.
func ModifyData(img *image.Image, idx uint16, offset uint64, buffer []byte) error {
	n := uint64(len(buffer))
	if n == 0 {
		return nil
	}

	rec := img.Inodes[idx].Decode()
	if offset > rec.Size {
		return retcode.ErrInvalidInput
	}

	overwriteEnd := offset + n
	var overwriteBytes, appendBytes uint64
	if overwriteEnd <= rec.Size {
		overwriteBytes = n
	} else {
		overwriteBytes = rec.Size - offset
		appendBytes = overwriteEnd - rec.Size
	}

	cur := offset
	remaining := buffer[:overwriteBytes]
	for len(remaining) > 0 {
		blockIndex := cur / blockSize
		offsetInBlock := cur % blockSize
		writeInThis := blockSize - offsetInBlock
		if writeInThis > uint64(len(remaining)) {
			writeInThis = uint64(len(remaining))
		}

		blockIdx, ok := getDataBlockIndex(img, rec, blockIndex)
		if !ok {
			return retcode.ErrSystemError
		}

		copy(blockOf(img, blockIdx)[offsetInBlock:offsetInBlock+writeInThis], remaining[:writeInThis])

		remaining = remaining[writeInThis:]
		cur += writeInThis
	}

	if appendBytes > 0 {
		if err := WriteData(img, idx, buffer[overwriteBytes:]); err != nil {
			return err
		}
	}

	return nil
}

// ShrinkData releases every data block (and, transitively, index block)
// beyond newSize and updates the inode's recorded size, grounded on
// inode_shrink_data.
func ShrinkData(img *image.Image, idx uint16, newSize uint64) error {
	rec := img.Inodes[idx].Decode()
	if newSize > rec.Size {
		return retcode.ErrInvalidInput
	}
	if newSize == rec.Size {
		return nil
	}

	oldBlocks := blocksNeeded(rec.Size)
	newBlocks := blocksNeeded(newSize)

	for i := newBlocks; i < oldBlocks; i++ {
		if i < directCount {
			d := rec.Direct[i]
			if d != 0 {
				_ = allocator.ReleaseDBlock(img, d)
				rec.Direct[i] = 0
			}
			continue
		}

		slotIdx := i - directCount
		cur := rec.IndirectBlk
		rem := slotIdx
		for rem >= indexSlots {
			cur = readNextIndexBlock(img, cur)
			rem -= indexSlots
		}
		v := readIndexSlot(img, cur, int(rem))
		if v != 0 {
			_ = allocator.ReleaseDBlock(img, v)
			writeIndexSlot(img, cur, int(rem), 0)
		}
	}

	if newBlocks <= directCount {
		cur := rec.IndirectBlk
		for cur != 0 {
			next := readNextIndexBlock(img, cur)
			_ = allocator.ReleaseDBlock(img, cur)
			cur = next
		}
		rec.IndirectBlk = 0
	} else {
		// Walk exactly as many index blocks as are still needed to hold the
		// surviving indirect slots, then unlink and release everything past
		// that point. (The boundary index block itself is kept — it still
		// holds live pointers — and only fully-unreferenced index blocks
		// past it are released.)
		neededSlots := newBlocks - directCount
		neededIndexBlocks := (neededSlots + indexSlots - 1) / indexSlots

		var prev uint32
		cur := rec.IndirectBlk
		for i := uint64(0); i < neededIndexBlocks && cur != 0; i++ {
			prev = cur
			cur = readNextIndexBlock(img, cur)
		}
		if prev != 0 {
			writeNextIndexBlock(img, prev, 0)
		}
		for cur != 0 {
			next := readNextIndexBlock(img, cur)
			_ = allocator.ReleaseDBlock(img, cur)
			cur = next
		}
	}

	rec.Size = newSize
	img.Inodes[idx].Encode(rec)
	return nil
}

// ReleaseData shrinks the inode's content to zero bytes, releasing every
// data and index block it owned, grounded on inode_release_data.
func ReleaseData(img *image.Image, idx uint16) error {
	return ShrinkData(img, idx, 0)
}
