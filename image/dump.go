package image

import (
	"fmt"
	"io"

	"github.com/yusufbadar/unixfs/retcode"
)

// ErrPatchOutOfRange is returned by PatchBytes when the requested range
// falls outside the data-block arena.
var ErrPatchOutOfRange = retcode.ErrInvalidInput.WithMessage("patch range outside data block arena")

// DumpFlags selects which sections Dump prints, mirroring the original
// implementation's fs_display_flag_t.
type DumpFlags uint8

const (
	DumpFormat DumpFlags = 1 << iota
	DumpInodes
	DumpDBlocks

	DumpAll = DumpFormat | DumpInodes | DumpDBlocks
)

var fileTypeNames = map[FileType]string{
	DataFile:  "DATA_FILE",
	Directory: "DIRECTORY",
}

// Dump writes a human-readable report of img to w, reconstructing the
// original implementation's display_filesystem debugging function. It is
// presentation-only: nothing in the core packages calls it.
func Dump(w io.Writer, img *Image, flags DumpFlags, availableInodes, availableDBlocks int) {
	if flags&DumpFormat != 0 {
		fmt.Fprintln(w, "File System Structure:")
		fmt.Fprintf(w, "\tavailable inode: %d / %d\n", availableInodes, len(img.Inodes))
		fmt.Fprintf(w, "\tavailable dblock: %d / %d\n", availableDBlocks, img.DBlockCount)
	}

	if flags&DumpInodes != 0 {
		free := make(map[uint16]bool)
		iter := img.FreeInodeHead
		for iter != 0 {
			free[iter] = true
			iter = img.Inodes[iter].NextFreeInode()
		}

		fmt.Fprintln(w, "I-Node List:")
		for i, inode := range img.Inodes {
			if free[uint16(i)] {
				continue
			}
			rec := inode.Decode()
			perm := ""
			if rec.Perms != 0 {
				if rec.Perms&PermRead != 0 {
					perm += "READ "
				}
				if rec.Perms&PermWrite != 0 {
					perm += "WRITE "
				}
				if rec.Perms&PermExecute != 0 {
					perm += "EXECUTE "
				}
			}
			fmt.Fprintf(w, "\tinode index %d [.type = %s .perm = %s.name = %q .size = %d]\n",
				i, fileTypeNames[rec.Type], perm, rec.Name, rec.Size)

			if rec.Size > 0 {
				neededBlocks := (rec.Size + DataBlockSize - 1) / DataBlockSize
				directUsed := neededBlocks
				if directUsed > DirectBlockCount {
					directUsed = DirectBlockCount
				}
				fmt.Fprint(w, "\t\tDirect Data Blocks: ")
				for j := uint64(0); j < directUsed; j++ {
					fmt.Fprintf(w, "%d ", rec.Direct[j])
				}
				fmt.Fprintln(w)
			}
		}
	}

	if flags&DumpDBlocks != 0 {
		fmt.Fprintln(w, "Data Block List:")
		for idx := uint32(0); idx < img.DBlockCount; idx++ {
			if dblockFree(img.DBlockBitmap, idx) {
				continue
			}
			fmt.Fprintf(w, "\tdblock index %d", idx)
			for k := 0; k < DataBlockSize; k++ {
				if k%16 == 0 {
					fmt.Fprint(w, "\n\t\t")
				}
				fmt.Fprintf(w, "%02x ", img.DBlocks[uint64(idx)*DataBlockSize+uint64(k)])
			}
			fmt.Fprintln(w)
		}
	}
}

// PatchBytes overwrites a byte range in the raw data-block arena. This is a
// minimal implementation of the "patch" command accepted but not specified
// by the command table; it does not go through inodeio and has no notion of
// which inode, if any, owns the patched bytes.
func (img *Image) PatchBytes(offset int, data []byte) error {
	if offset < 0 || offset+len(data) > len(img.DBlocks) {
		return ErrPatchOutOfRange
	}
	copy(img.DBlocks[offset:], data)
	return nil
}
