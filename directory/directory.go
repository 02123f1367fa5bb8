// Package directory implements the fixed-width directory entry format and
// tombstone-aware entry management, grounded on the original
// implementation's find_directory_entry, add_directory_entry, and
// remove_directory_entry.
package directory

import (
	"encoding/binary"

	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/inodeio"
	"github.com/yusufbadar/unixfs/retcode"
)

// EntrySize is the fixed width of one directory entry: a 2-byte
// little-endian inode index followed by a 14-byte zero-padded name.
const EntrySize = image.DirectoryEntrySize

// Entry is the decoded view of one directory entry.
type Entry struct {
	InodeIndex uint16
	Name       string
}

func decodeEntry(buf []byte) Entry {
	idx := binary.LittleEndian.Uint16(buf[0:2])
	n := 2
	for n < EntrySize && buf[n] != 0 {
		n++
	}
	return Entry{InodeIndex: idx, Name: string(buf[2:n])}
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, EntrySize)
	binary.LittleEndian.PutUint16(buf[0:2], e.InodeIndex)
	copy(buf[2:], e.Name)
	return buf
}

func isTombstone(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// EntryCount returns how many directory-entry slots dirInode's content
// currently occupies (tombstones included).
func EntryCount(img *image.Image, dirInode uint16) int {
	rec := img.Inodes[dirInode].Decode()
	return int(rec.Size) / EntrySize
}

// ReadEntry reads the i'th entry slot of dirInode.
func ReadEntry(img *image.Image, dirInode uint16, i int) (Entry, error) {
	buf := make([]byte, EntrySize)
	n, err := inodeio.ReadData(img, dirInode, uint64(i*EntrySize), buf)
	if err != nil {
		return Entry{}, err
	}
	if n != EntrySize {
		return Entry{}, retcode.ErrSystemError.WithMessage("short directory entry read")
	}
	return decodeEntry(buf), nil
}

// FindEntry scans dirInode's entries for name, skipping tombstones, and
// returns the matching entry along with its slot index.
func FindEntry(img *image.Image, dirInode uint16, name string) (Entry, int, error) {
	count := EntryCount(img, dirInode)
	for i := 0; i < count; i++ {
		e, err := ReadEntry(img, dirInode, i)
		if err != nil {
			continue
		}
		if e.InodeIndex == 0 {
			continue
		}
		if e.Name == name {
			return e, i, nil
		}
	}
	return Entry{}, -1, retcode.ErrNotFound
}

// AddEntry inserts (childIdx, name) into dirInode, reusing the first
// tombstone slot if one exists, otherwise appending a new slot.
func AddEntry(img *image.Image, dirInode uint16, childIdx uint16, name string) error {
	buf := encodeEntry(Entry{InodeIndex: childIdx, Name: name})

	count := EntryCount(img, dirInode)
	for i := 0; i < count; i++ {
		raw := make([]byte, EntrySize)
		n, err := inodeio.ReadData(img, dirInode, uint64(i*EntrySize), raw)
		if err != nil || n != EntrySize {
			continue
		}
		if isTombstone(raw) {
			return inodeio.ModifyData(img, dirInode, uint64(i*EntrySize), buf)
		}
	}

	return inodeio.WriteData(img, dirInode, buf)
}

// RemoveEntry tombstones the entry named name within dirInode, then trims
// any run of trailing tombstone slots off the end of the directory's
// content.
func RemoveEntry(img *image.Image, dirInode uint16, name string) error {
	_, slot, err := FindEntry(img, dirInode, name)
	if err != nil {
		return err
	}

	tomb := make([]byte, EntrySize)
	if err := inodeio.ModifyData(img, dirInode, uint64(slot*EntrySize), tomb); err != nil {
		return err
	}

	for {
		rec := img.Inodes[dirInode].Decode()
		if rec.Size < EntrySize {
			break
		}
		lastOffset := rec.Size - EntrySize
		buf := make([]byte, EntrySize)
		n, err := inodeio.ReadData(img, dirInode, lastOffset, buf)
		if err != nil || n != EntrySize {
			break
		}
		if !isTombstone(buf) {
			break
		}
		if err := inodeio.ShrinkData(img, dirInode, lastOffset); err != nil {
			break
		}
	}

	return nil
}
