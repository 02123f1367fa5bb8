package image

// The data-block free map is stored as a github.com/boljen/go-bitmap Bitmap
// ([]byte) for consistency with the teacher driver's own field type, but the
// bit convention itself is pinned by the on-disk format (spec section 6:
// byte k, bit 7-i%8, 1 = free) rather than left to that library's own
// Get/Set semantics, since the image must round-trip byte-for-byte.

// dblockFree reports whether data block i is marked free in the bitmap.
func dblockFree(bm []byte, i uint32) bool {
	byteIdx := i / 8
	bitIdx := i % 8
	return bm[byteIdx]&(1<<(7-bitIdx)) != 0
}

// markDBlockUsed clears the free bit for data block i.
func markDBlockUsed(bm []byte, i uint32) {
	byteIdx := i / 8
	bitIdx := i % 8
	bm[byteIdx] &^= 1 << (7 - bitIdx)
}

// markDBlockFree sets the free bit for data block i.
func markDBlockFree(bm []byte, i uint32) {
	byteIdx := i / 8
	bitIdx := i % 8
	bm[byteIdx] |= 1 << (7 - bitIdx)
}

// DBlockFree reports whether data block i is currently free.
func (img *Image) DBlockFree(i uint32) bool {
	return dblockFree(img.DBlockBitmap, i)
}

// MarkDBlockUsed clears the free bit for data block i.
func (img *Image) MarkDBlockUsed(i uint32) {
	markDBlockUsed(img.DBlockBitmap, i)
}

// MarkDBlockFree sets the free bit for data block i.
func (img *Image) MarkDBlockFree(i uint32) {
	markDBlockFree(img.DBlockBitmap, i)
}
