// Package image owns the in-memory representation of a single file system
// image: the inode table, the free-space bitmap, and the data-block arena,
// plus the binary layout used to persist and reload it.
package image

import (
	"encoding/binary"

	"github.com/boljen/go-bitmap"

	"github.com/yusufbadar/unixfs/retcode"
)

const (
	// DataBlockSize is the fixed size, in bytes, of every data block.
	DataBlockSize = 64
	// MaxFileNameLen is the maximum number of bytes stored for a file or
	// directory entry name.
	MaxFileNameLen = 14
	// DirectBlockCount is the number of direct block pointers held in each
	// inode before the indirect chain is consulted.
	DirectBlockCount = 4
	// RawInodeSize is the fixed on-disk/in-memory size of a single inode
	// record.
	RawInodeSize = 48
	// IndirectIndexCount is how many data-block indices fit in one index
	// block, after reserving the last 4 bytes for the next-index-block
	// pointer.
	IndirectIndexCount = DataBlockSize/4 - 1
	// NextIndirectOffset is the byte offset, within an index block, of the
	// pointer to the next index block in the chain.
	NextIndirectOffset = DataBlockSize - 4

	// RootInodeIndex is the fixed inode index of the root directory. It is
	// never placed on the free list and never released.
	RootInodeIndex = 0
)

// FileType distinguishes a regular data file from a directory.
type FileType uint16

const (
	DataFile FileType = iota
	Directory
)

// Permission is a bitmask of read/write/execute permissions, carried for
// fidelity with the original model; this implementation does not enforce
// permissions on any operation.
type Permission uint16

const (
	PermRead    Permission = 0x1
	PermWrite   Permission = 0x2
	PermExecute Permission = 0x4
)

// RawInode is the 48-byte fixed-size record backing one inode slot. It has
// two views, matching the discriminated union of the original design: while
// the slot is on the free list, only NextFreeInode is meaningful; while the
// slot is in use, only the Record view is meaningful. Nothing in the byte
// layout itself records which view is active — that's tracked externally by
// whether the slot is reachable from the free-inode chain.
type RawInode [RawInodeSize]byte

// Record is the decoded, in-use view of a RawInode.
type Record struct {
	Type        FileType
	Perms       Permission
	Name        string
	Size        uint64
	Direct      [DirectBlockCount]uint32
	IndirectBlk uint32
}

// NextFreeInode reads the free-list link stored in the first two bytes of
// the slot. Valid only when the slot is not currently in use.
func (r RawInode) NextFreeInode() uint16 {
	return binary.LittleEndian.Uint16(r[0:2])
}

// SetNextFreeInode overwrites the slot with a free-list link, discarding any
// in-use record it may have held.
func (r *RawInode) SetNextFreeInode(next uint16) {
	*r = RawInode{}
	binary.LittleEndian.PutUint16(r[0:2], next)
}

// Decode reads the in-use view of the slot.
func (r RawInode) Decode() Record {
	var rec Record
	rec.Type = FileType(binary.LittleEndian.Uint16(r[0:2]))
	rec.Perms = Permission(binary.LittleEndian.Uint16(r[2:4]))
	rec.Name = decodeName(r[4 : 4+MaxFileNameLen])
	rec.Size = binary.LittleEndian.Uint64(r[18:26])
	for i := 0; i < DirectBlockCount; i++ {
		rec.Direct[i] = binary.LittleEndian.Uint32(r[26+4*i : 30+4*i])
	}
	rec.IndirectBlk = binary.LittleEndian.Uint32(r[42:46])
	return rec
}

// Encode overwrites the slot with the in-use view of rec.
func (r *RawInode) Encode(rec Record) {
	*r = RawInode{}
	binary.LittleEndian.PutUint16(r[0:2], uint16(rec.Type))
	binary.LittleEndian.PutUint16(r[2:4], uint16(rec.Perms))
	encodeName(r[4:4+MaxFileNameLen], rec.Name)
	binary.LittleEndian.PutUint64(r[18:26], rec.Size)
	for i := 0; i < DirectBlockCount; i++ {
		binary.LittleEndian.PutUint32(r[26+4*i:30+4*i], rec.Direct[i])
	}
	binary.LittleEndian.PutUint32(r[42:46], rec.IndirectBlk)
}

func decodeName(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func encodeName(dst []byte, name string) {
	n := copy(dst, name)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

// Image is a complete, loaded file system: an inode table, the head of the
// free-inode list, a data-block bitmap, and the data-block arena.
type Image struct {
	Inodes        []RawInode
	FreeInodeHead uint16
	DBlockBitmap  bitmap.Bitmap
	DBlocks       []byte
	DBlockCount   uint32
}

// New allocates a fresh image with inodeCount inodes and dblockCount data
// blocks, with the root directory initialized per the original design: a
// DIRECTORY inode at index 0 containing a single "." entry in data block 0.
func New(inodeCount int, dblockCount uint32) (*Image, error) {
	if inodeCount <= 0 || dblockCount == 0 {
		return nil, retcode.ErrInvalidInput
	}

	img := &Image{
		Inodes:      make([]RawInode, inodeCount),
		DBlockCount: dblockCount,
		DBlocks:     make([]byte, uint64(dblockCount)*DataBlockSize),
	}

	for i := 0; i < inodeCount-1; i++ {
		img.Inodes[i].SetNextFreeInode(uint16(i + 1))
	}
	img.Inodes[inodeCount-1].SetNextFreeInode(0)

	bitmapSize := (int(dblockCount) + 7) / 8
	img.DBlockBitmap = bitmap.Bitmap(make([]byte, bitmapSize))
	for i := range img.DBlockBitmap {
		img.DBlockBitmap[i] = 0xFF
	}

	if inodeCount > 1 {
		img.FreeInodeHead = 1
	} else {
		img.FreeInodeHead = 0
	}

	// Claim data block 0 for the root directory's "." entry by hand, the
	// same way new_filesystem does: set byte 0 of the bitmap to 0x7F rather
	// than going through the bit-clear helper, leaving bits 1-7 free.
	img.DBlockBitmap[0] = 0x7F
	// The "." entry: inode index 0 (already zero), name ".".
	img.DBlocks[2] = '.'

	root := Record{
		Type:  Directory,
		Perms: PermRead | PermWrite | PermExecute,
		Name:  "root",
		Size:  uint64(DirectoryEntrySize),
	}
	img.Inodes[RootInodeIndex].Encode(root)

	return img, nil
}

// DirectoryEntrySize is the fixed width, in bytes, of one directory entry:
// a 2-byte little-endian inode index followed by a 14-byte zero-padded name.
const DirectoryEntrySize = 2 + MaxFileNameLen
