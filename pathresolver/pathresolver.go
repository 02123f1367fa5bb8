// Package pathresolver walks '/'-separated paths over a directory tree,
// grounded on the original implementation's resolve_path and
// resolve_parent.
package pathresolver

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/yusufbadar/unixfs/directory"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/retcode"
)

// splitPath breaks path into non-empty components, dropping the artifacts
// of a leading slash or repeated slashes, the same
// index-then-delete-then-clip shape
// dargueta-disko/drivers/common/basedriver.removeDotsFromSlice uses to strip
// "." and ".." tokens from a split path.
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	for {
		index := slices.Index(parts, "")
		if index < 0 {
			break
		}
		parts = slices.Delete(parts, index, index+1)
	}
	return slices.Clip(parts)
}

// Resolve walks path starting at startInode, following child directory
// entries component by component, and returns the inode index it lands on.
// A component named "." stays in place; ".." moves to the parent directory
// recorded in that directory's own ".." entry, except at the root, which has
// no ".." entry and resolves ".." to itself (Open Question O2).
func Resolve(img *image.Image, startInode uint16, path string) (uint16, error) {
	tokens := splitPath(path)
	curr := startInode
	for i, token := range tokens {
		switch token {
		case ".":
			continue
		case "..":
			parent, err := parentOf(img, curr)
			if err != nil {
				return 0, err
			}
			curr = parent
			continue
		}

		entry, _, err := directory.FindEntry(img, curr, token)
		if err != nil {
			return 0, retcode.ErrDirNotFound.WithMessage(token)
		}
		curr = entry.InodeIndex

		// Every component but the last must itself be a directory, or the
		// next iteration's FindEntry would decode an arbitrary DATA_FILE's
		// bytes as directory entries.
		if i < len(tokens)-1 && img.Inodes[curr].Decode().Type != image.Directory {
			return 0, retcode.ErrDirNotFound.WithMessage(token)
		}
	}
	return curr, nil
}

// parentOf returns the inode index of dirInode's parent, read from its ".."
// entry (the second entry slot, at byte offset 16), or dirInode itself if
// dirInode is the root (which has no ".." entry).
func parentOf(img *image.Image, dirInode uint16) (uint16, error) {
	if dirInode == image.RootInodeIndex {
		return image.RootInodeIndex, nil
	}
	entry, err := directory.ReadEntry(img, dirInode, 1)
	if err != nil || entry.Name != ".." {
		return 0, retcode.ErrSystemError.WithMessage("directory missing '..' entry")
	}
	return entry.InodeIndex, nil
}

// ResolveParent splits path into (parent directory, base name): it resolves
// every component except the last, and returns the parent inode plus the
// final path component, grounded on resolve_parent. A base name longer than
// image.MaxFileNameLen is truncated to that length rather than rejected,
// matching new_file's strncpy behavior.
func ResolveParent(img *image.Image, startInode uint16, path string) (parent uint16, base string, err error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return 0, "", retcode.ErrEmptyFilename
	}

	base = parts[len(parts)-1]
	dirParts := parts[:len(parts)-1]

	curr := startInode
	for _, token := range dirParts {
		switch token {
		case ".":
			continue
		case "..":
			p, e := parentOf(img, curr)
			if e != nil {
				return 0, "", e
			}
			curr = p
			continue
		}
		entry, _, e := directory.FindEntry(img, curr, token)
		if e != nil {
			return 0, "", retcode.ErrDirNotFound.WithMessage(token)
		}
		curr = entry.InodeIndex

		// Every dirParts component is by definition intermediate (base was
		// already split off above), so each one must be a directory before
		// the next token is looked up inside it.
		if img.Inodes[curr].Decode().Type != image.Directory {
			return 0, "", retcode.ErrDirNotFound.WithMessage(token)
		}
	}

	if len(base) == 0 {
		return 0, "", retcode.ErrEmptyFilename
	}
	if len(base) > image.MaxFileNameLen {
		base = base[:image.MaxFileNameLen]
	}

	return curr, base, nil
}
