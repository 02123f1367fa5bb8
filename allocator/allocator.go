// Package allocator implements inode and data-block allocation over an
// image.Image: the inode free list and the data-block bitmap scan, grounded
// on the original implementation's claim/release functions and generalized
// with the teacher's Allocator struct shape.
package allocator

import (
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/retcode"
)

// AvailableInodes walks the free-inode chain and counts its length.
func AvailableInodes(img *image.Image) int {
	count := 0
	iter := img.FreeInodeHead
	for iter != 0 {
		count++
		iter = img.Inodes[iter].NextFreeInode()
	}
	return count
}

// AvailableDBlocks counts how many data blocks are currently marked free.
func AvailableDBlocks(img *image.Image) int {
	count := 0
	for i := uint32(0); i < img.DBlockCount; i++ {
		if img.DBlockFree(i) {
			count++
		}
	}
	return count
}

// ClaimInode pops the head of the free-inode list and returns its index.
func ClaimInode(img *image.Image) (uint16, error) {
	idx := img.FreeInodeHead
	if idx == 0 {
		return 0, retcode.ErrInodeUnavailable
	}
	img.FreeInodeHead = img.Inodes[idx].NextFreeInode()
	return idx, nil
}

// ReleaseInode returns inode idx to the free list. The root inode can never
// be released.
func ReleaseInode(img *image.Image, idx uint16) error {
	if idx == image.RootInodeIndex {
		return retcode.ErrInvalidInput.WithMessage("cannot release the root inode")
	}
	img.Inodes[idx].SetNextFreeInode(img.FreeInodeHead)
	img.FreeInodeHead = idx
	return nil
}

// ClaimDBlock scans the bitmap for the first free data block, marks it used,
// and returns its index.
func ClaimDBlock(img *image.Image) (uint32, error) {
	for i := uint32(0); i < img.DBlockCount; i++ {
		if img.DBlockFree(i) {
			img.MarkDBlockUsed(i)
			return i, nil
		}
	}
	return 0, retcode.ErrDBlockUnavailable
}

// ReleaseDBlock marks data block idx free again. The contents of the block
// are left untouched, matching the original's release_dblock.
func ReleaseDBlock(img *image.Image, idx uint32) error {
	if idx >= img.DBlockCount {
		return retcode.ErrInvalidInput.WithMessage("dblock index out of range")
	}
	img.MarkDBlockFree(idx)
	return nil
}
