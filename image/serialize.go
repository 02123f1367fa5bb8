package image

import (
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"

	"github.com/yusufbadar/unixfs/retcode"
)

// bitmapByteSize returns ceil(dblockCount/8).
func bitmapByteSize(dblockCount uint32) int {
	return (int(dblockCount) + 7) / 8
}

// Save writes img to w in the pinned binary layout: inode count (8 bytes),
// free-inode-list head (2 bytes), dblock count (8 bytes), the raw inode
// table, the dblock bitmap, then the dblock arena — all little-endian.
// Grounded on the original implementation's save_filesystem, which performs
// the equivalent sequence of raw fwrite calls.
func (img *Image) Save(w io.Writer) error {
	bmSize := bitmapByteSize(img.DBlockCount)
	total := 8 + 2 + 8 + len(img.Inodes)*RawInodeSize + bmSize + len(img.DBlocks)

	buf := make([]byte, total)
	bw := bytewriter.New(buf)

	var hdr [18]byte
	binary.LittleEndian.PutUint64(hdr[0:8], uint64(len(img.Inodes)))
	binary.LittleEndian.PutUint16(hdr[8:10], img.FreeInodeHead)
	binary.LittleEndian.PutUint64(hdr[10:18], uint64(img.DBlockCount))
	if _, err := bw.Write(hdr[:]); err != nil {
		return retcode.ErrSystemError.Wrap(err)
	}

	for _, inode := range img.Inodes {
		if _, err := bw.Write(inode[:]); err != nil {
			return retcode.ErrSystemError.Wrap(err)
		}
	}

	if _, err := bw.Write(img.DBlockBitmap[:bmSize]); err != nil {
		return retcode.ErrSystemError.Wrap(err)
	}

	if _, err := bw.Write(img.DBlocks); err != nil {
		return retcode.ErrSystemError.Wrap(err)
	}

	if _, err := w.Write(buf); err != nil {
		return retcode.ErrSystemError.Wrap(err)
	}
	return nil
}

// Load reads an image from r in the layout written by Save. Grounded on the
// original implementation's load_filesystem.
func Load(r io.Reader) (*Image, error) {
	var hdr [18]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, retcode.ErrInvalidBinaryFormat.Wrap(err)
	}
	inodeCount := binary.LittleEndian.Uint64(hdr[0:8])
	freeHead := binary.LittleEndian.Uint16(hdr[8:10])
	dblockCount := binary.LittleEndian.Uint64(hdr[10:18])

	if inodeCount == 0 || dblockCount == 0 {
		return nil, retcode.ErrInvalidBinaryFormat.WithMessage("zero-sized filesystem")
	}

	img := &Image{
		Inodes:        make([]RawInode, inodeCount),
		FreeInodeHead: freeHead,
		DBlockCount:   uint32(dblockCount),
	}

	for i := range img.Inodes {
		if _, err := io.ReadFull(r, img.Inodes[i][:]); err != nil {
			return nil, retcode.ErrInvalidBinaryFormat.Wrap(err)
		}
	}

	bmSize := bitmapByteSize(img.DBlockCount)
	img.DBlockBitmap = make([]byte, bmSize)
	if _, err := io.ReadFull(r, img.DBlockBitmap); err != nil {
		return nil, retcode.ErrInvalidBinaryFormat.Wrap(err)
	}

	img.DBlocks = make([]byte, dblockCount*DataBlockSize)
	if _, err := io.ReadFull(r, img.DBlocks); err != nil {
		return nil, retcode.ErrInvalidBinaryFormat.Wrap(err)
	}

	return img, nil
}
