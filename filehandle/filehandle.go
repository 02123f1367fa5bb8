// Package filehandle implements an open-file cursor (an inode plus a
// byte offset) layered on inodeio, grounded on the original
// implementation's fs_file struct and fs_open/fs_close/fs_read/fs_write/
// fs_seek functions.
package filehandle

import (
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/inodeio"
	"github.com/yusufbadar/unixfs/retcode"
)

// SeekMode selects the reference point for Seek, mirroring seek_mode_t.
type SeekMode int

const (
	SeekCurrent SeekMode = iota
	SeekStart
	SeekEnd
)

// Handle is a cursor onto a DATA_FILE inode's content.
type Handle struct {
	img    *image.Image
	Inode  uint16
	Offset uint64
}

// Open returns a Handle over inode, or an error if inode is not a DATA_FILE.
// Grounded on fs_open's file-type check (path resolution itself is left to
// the caller, which walks from a path string down to an inode with
// pathresolver).
func Open(img *image.Image, inode uint16) (*Handle, error) {
	rec := img.Inodes[inode].Decode()
	if rec.Type != image.DataFile {
		return nil, retcode.ErrInvalidFileType
	}
	return &Handle{img: img, Inode: inode}, nil
}

// Read reads up to len(buf) bytes starting at the handle's current offset
// and advances the offset by the number of bytes actually read.
func (h *Handle) Read(buf []byte) (int, error) {
	n, err := inodeio.ReadData(h.img, h.Inode, h.Offset, buf)
	h.Offset += uint64(n)
	return n, err
}

// Write writes buf at the handle's current offset, overwriting existing
// content and appending past the end of file as needed, then advances the
// offset by len(buf). Grounded on fs_write's overwrite/append split.
func (h *Handle) Write(buf []byte) (int, error) {
	size := h.img.Inodes[h.Inode].Decode().Size
	off := h.Offset
	n := uint64(len(buf))

	written := uint64(0)
	if off < size {
		toOverwrite := n
		if off+n > size {
			toOverwrite = size - off
		}
		if err := inodeio.ModifyData(h.img, h.Inode, off, buf[:toOverwrite]); err != nil {
			return 0, err
		}
		written += toOverwrite
	}

	if off+n > size {
		toAppend := off + n - size
		if err := inodeio.WriteData(h.img, h.Inode, buf[written:written+toAppend]); err != nil {
			return int(written), err
		}
		written += toAppend
	}

	h.Offset += n
	return int(n), nil
}

// Seek moves the handle's offset according to mode and offset, clamping the
// result to [0, file size]. A negative resulting offset is an error.
func (h *Handle) Seek(mode SeekMode, offset int64) error {
	size := int64(h.img.Inodes[h.Inode].Decode().Size)

	var newOffset int64
	switch mode {
	case SeekStart:
		newOffset = offset
	case SeekCurrent:
		newOffset = int64(h.Offset) + offset
	case SeekEnd:
		newOffset = size + offset
	default:
		return retcode.ErrInvalidInput
	}

	if newOffset < 0 {
		return retcode.ErrInvalidInput
	}
	if newOffset > size {
		newOffset = size
	}

	h.Offset = uint64(newOffset)
	return nil
}
