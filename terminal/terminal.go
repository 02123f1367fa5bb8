// Package terminal implements the high-level file system operations exposed
// to a shell-like caller: creating and removing files and directories,
// changing the working directory, listing and walking the tree, and
// resolving the working directory back to a path string. Grounded on the
// original implementation's new_file, new_directory, remove_file,
// remove_directory, change_directory, list, tree, and get_path_string.
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/yusufbadar/unixfs/allocator"
	"github.com/yusufbadar/unixfs/directory"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/inodeio"
	"github.com/yusufbadar/unixfs/pathresolver"
	"github.com/yusufbadar/unixfs/retcode"
)

// Terminal pairs an image with a current working directory, the same role
// terminal_context_t plays in the original design. It is intentionally a
// thin struct rather than an interface-segregated driver: every operation
// here is concrete to this one image format, unlike
// dargueta-disko/drivers/common/basedriver's CommonDriver, which dispatches
// to a pluggable DriverImplementation across several on-disk formats.
type Terminal struct {
	Image *image.Image
	CWD   uint16
}

// New returns a Terminal positioned at img's root directory.
func New(img *image.Image) *Terminal {
	return &Terminal{Image: img, CWD: image.RootInodeIndex}
}

func dotEntry(inode uint16) []byte {
	b := make([]byte, directory.EntrySize)
	b[0] = byte(inode)
	b[1] = byte(inode >> 8)
	copy(b[2:], ".")
	return b
}

func dotDotEntry(inode uint16) []byte {
	b := make([]byte, directory.EntrySize)
	b[0] = byte(inode)
	b[1] = byte(inode >> 8)
	copy(b[2:], "..")
	return b
}

// NewFile creates a new, empty DATA_FILE at path relative to the terminal's
// working directory.
func (t *Terminal) NewFile(path string, perms image.Permission) error {
	parent, base, err := pathresolver.ResolveParent(t.Image, t.CWD, path)
	if err != nil {
		return err
	}

	if _, _, err := directory.FindEntry(t.Image, parent, base); err == nil {
		return retcode.ErrFileExist
	}

	idx, err := allocator.ClaimInode(t.Image)
	if err != nil {
		return retcode.ErrInodeUnavailable
	}

	t.Image.Inodes[idx].Encode(image.Record{
		Type:  image.DataFile,
		Perms: perms,
		Name:  base,
	})

	if err := directory.AddEntry(t.Image, parent, idx, base); err != nil {
		_ = allocator.ReleaseInode(t.Image, idx)
		return err
	}
	return nil
}

// NewDirectory creates a new, empty directory (containing only "." and
// "..") at path relative to the terminal's working directory.
func (t *Terminal) NewDirectory(path string) error {
	parent, base, err := pathresolver.ResolveParent(t.Image, t.CWD, path)
	if err != nil {
		return err
	}

	if _, _, err := directory.FindEntry(t.Image, parent, base); err == nil {
		return retcode.ErrDirectoryExist
	}

	idx, err := allocator.ClaimInode(t.Image)
	if err != nil {
		return retcode.ErrInodeUnavailable
	}
	t.Image.Inodes[idx].Encode(image.Record{Type: image.Directory, Name: base})

	if err := inodeio.WriteData(t.Image, idx, dotEntry(idx)); err != nil {
		_ = allocator.ReleaseInode(t.Image, idx)
		return retcode.ErrInsufficientDBlocks
	}
	if err := inodeio.WriteData(t.Image, idx, dotDotEntry(parent)); err != nil {
		_ = inodeio.ReleaseData(t.Image, idx)
		_ = allocator.ReleaseInode(t.Image, idx)
		return err
	}

	if err := directory.AddEntry(t.Image, parent, idx, base); err != nil {
		_ = inodeio.ReleaseData(t.Image, idx)
		_ = allocator.ReleaseInode(t.Image, idx)
		return err
	}
	return nil
}

// RemoveFile deletes the DATA_FILE at path.
func (t *Terminal) RemoveFile(path string) error {
	parent, base, err := pathresolver.ResolveParent(t.Image, t.CWD, path)
	if err != nil {
		return err
	}

	entry, _, err := directory.FindEntry(t.Image, parent, base)
	if err != nil {
		return retcode.ErrFileNotFound
	}
	rec := t.Image.Inodes[entry.InodeIndex].Decode()
	if rec.Type != image.DataFile {
		return retcode.ErrFileNotFound
	}

	if err := directory.RemoveEntry(t.Image, parent, base); err != nil {
		return err
	}
	if err := inodeio.ReleaseData(t.Image, entry.InodeIndex); err != nil {
		return err
	}
	return allocator.ReleaseInode(t.Image, entry.InodeIndex)
}

// RemoveDirectory deletes the directory at path, which must be empty (hold
// only "." and "..") and must not be the terminal's current working
// directory.
func (t *Terminal) RemoveDirectory(path string) error {
	parent, base, err := pathresolver.ResolveParent(t.Image, t.CWD, path)
	if err != nil {
		return err
	}
	if base == "." || base == ".." {
		return retcode.ErrInvalidFilename
	}

	entry, _, err := directory.FindEntry(t.Image, parent, base)
	if err != nil {
		return retcode.ErrDirNotFound
	}
	rec := t.Image.Inodes[entry.InodeIndex].Decode()
	if rec.Type != image.Directory {
		return retcode.ErrDirNotFound
	}
	if rec.Size > 2*uint64(directory.EntrySize) {
		return retcode.ErrDirNotEmpty
	}
	if entry.InodeIndex == t.CWD {
		return retcode.ErrAttemptDeleteCwd
	}

	if err := directory.RemoveEntry(t.Image, parent, base); err != nil {
		return err
	}
	if err := inodeio.ReleaseData(t.Image, entry.InodeIndex); err != nil {
		return err
	}
	return allocator.ReleaseInode(t.Image, entry.InodeIndex)
}

// ChangeDirectory moves the terminal's working directory to path.
func (t *Terminal) ChangeDirectory(path string) error {
	target, err := pathresolver.Resolve(t.Image, t.CWD, path)
	if err != nil {
		return retcode.ErrDirNotFound
	}
	rec := t.Image.Inodes[target].Decode()
	if rec.Type != image.Directory {
		return retcode.ErrDirNotFound
	}
	t.CWD = target
	return nil
}

// List writes a directory listing (or, for a file, a single-line
// description) of path to w, grounded on the original implementation's
// list function and its "name -> target" rendering of "." and "..".
func (t *Terminal) List(w io.Writer, path string) error {
	target, err := pathresolver.Resolve(t.Image, t.CWD, path)
	if err != nil {
		return retcode.ErrDirNotFound
	}
	rec := t.Image.Inodes[target].Decode()

	if rec.Type == image.DataFile {
		fmt.Fprintf(w, "f%s\t%d\t%s\n", permString(rec.Perms), rec.Size, rec.Name)
		return nil
	}

	count := directory.EntryCount(t.Image, target)
	for i := 0; i < count; i++ {
		entry, err := directory.ReadEntry(t.Image, target, i)
		if err != nil || entry.InodeIndex == 0 {
			continue
		}
		child := t.Image.Inodes[entry.InodeIndex].Decode()
		typeChar := 'f'
		if child.Type == image.Directory {
			typeChar = 'd'
		}
		if entry.Name == "." || entry.Name == ".." {
			fmt.Fprintf(w, "%c%s\t%d\t%s -> %s\n", typeChar, permString(child.Perms), child.Size, entry.Name, child.Name)
		} else {
			fmt.Fprintf(w, "%c%s\t%d\t%s\n", typeChar, permString(child.Perms), child.Size, entry.Name)
		}
	}
	return nil
}

func permString(p image.Permission) string {
	r, w, x := byte('-'), byte('-'), byte('-')
	if p&image.PermRead != 0 {
		r = 'r'
	}
	if p&image.PermWrite != 0 {
		w = 'w'
	}
	if p&image.PermExecute != 0 {
		x = 'x'
	}
	return string([]byte{r, w, x})
}

// GetPathString returns the absolute path of the terminal's working
// directory, grounded on get_path_string: it walks ".." entries back to the
// root and joins the collected names with "/".
func (t *Terminal) GetPathString() string {
	var names []string
	curr := t.CWD
	for curr != image.RootInodeIndex {
		rec := t.Image.Inodes[curr].Decode()
		names = append(names, rec.Name)
		entry, _, err := directory.FindEntry(t.Image, curr, "..")
		if err != nil {
			break
		}
		curr = entry.InodeIndex
	}
	names = append(names, t.Image.Inodes[image.RootInodeIndex].Decode().Name)

	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, "/")
}

// Tree writes an indented tree view of path (and, if it's a directory, its
// descendants) to w, grounded on the original implementation's tree_helper.
func (t *Terminal) Tree(w io.Writer, path string) error {
	target, err := pathresolver.Resolve(t.Image, t.CWD, path)
	if err != nil {
		return retcode.ErrDirNotFound
	}
	t.treeHelper(w, target, 0)
	return nil
}

func (t *Terminal) treeHelper(w io.Writer, node uint16, depth int) {
	rec := t.Image.Inodes[node].Decode()
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("   ", depth), rec.Name)

	if rec.Type != image.Directory {
		return
	}
	count := directory.EntryCount(t.Image, node)
	for i := 0; i < count; i++ {
		entry, err := directory.ReadEntry(t.Image, node, i)
		if err != nil || entry.InodeIndex == 0 {
			continue
		}
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		t.treeHelper(w, entry.InodeIndex, depth+1)
	}
}
