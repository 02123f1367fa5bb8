package image

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Check audits img against structural invariants of the format (the
// free-inode chain has no cycle and no out-of-range index, the bitmap is long
// enough for DBlockCount, and every in-use inode's block indices are in
// range) and returns every violation found via a *multierror.Error, or nil
// if none is found. It does not cross-check the bitmap against the blocks
// the inodes reference.
func Check(img *Image) error {
	var result *multierror.Error

	seenFree := make(map[uint16]bool)
	iter := img.FreeInodeHead
	steps := 0
	for iter != 0 {
		if steps > len(img.Inodes) {
			result = multierror.Append(result, fmt.Errorf("free-inode list cycle detected"))
			break
		}
		if int(iter) >= len(img.Inodes) {
			result = multierror.Append(result, fmt.Errorf("free-inode list references out-of-range inode %d", iter))
			break
		}
		if iter == RootInodeIndex {
			result = multierror.Append(result, fmt.Errorf("root inode is on the free-inode list"))
			break
		}
		seenFree[iter] = true
		iter = img.Inodes[iter].NextFreeInode()
		steps++
	}

	if uint32(len(img.DBlockBitmap)*8) < img.DBlockCount {
		result = multierror.Append(result, fmt.Errorf("dblock bitmap too small for %d blocks", img.DBlockCount))
	}

	for idx, inode := range img.Inodes {
		if seenFree[uint16(idx)] {
			continue
		}
		rec := inode.Decode()
		if rec.Type != DataFile && rec.Type != Directory {
			continue
		}
		for _, blk := range rec.Direct {
			if blk != 0 && blk >= img.DBlockCount {
				result = multierror.Append(result, fmt.Errorf("inode %d: direct block index %d out of range", idx, blk))
			}
		}
		if rec.IndirectBlk != 0 && rec.IndirectBlk >= img.DBlockCount {
			result = multierror.Append(result, fmt.Errorf("inode %d: indirect block index %d out of range", idx, rec.IndirectBlk))
		}
	}

	return result.ErrorOrNil()
}
