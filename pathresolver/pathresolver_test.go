package pathresolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufbadar/unixfs/allocator"
	"github.com/yusufbadar/unixfs/directory"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/inodeio"
	"github.com/yusufbadar/unixfs/pathresolver"
	"github.com/yusufbadar/unixfs/retcode"
)

// mkdir creates a minimal directory inode (type DIRECTORY, holding only a
// "." and a ".." entry) under parent, for resolver tests that only care
// about tree shape.
func mkdir(t *testing.T, img *image.Image, parent uint16, name string) uint16 {
	t.Helper()
	idx, err := allocator.ClaimInode(img)
	require.NoError(t, err)
	img.Inodes[idx].Encode(image.Record{Type: image.Directory, Name: name})

	dotEntry := make([]byte, directory.EntrySize)
	copy(dotEntry[2:], ".")
	require.NoError(t, inodeio.WriteData(img, idx, dotEntry))
	binEntry := func(inode uint16, nm string) []byte {
		b := make([]byte, directory.EntrySize)
		b[0] = byte(inode)
		b[1] = byte(inode >> 8)
		copy(b[2:], nm)
		return b
	}
	require.NoError(t, inodeio.WriteData(img, idx, binEntry(parent, "..")))

	require.NoError(t, directory.AddEntry(img, parent, idx, name))
	return idx
}

// mkfile creates a bare DATA_FILE inode under parent, for resolver tests
// that need a non-directory intermediate component.
func mkfile(t *testing.T, img *image.Image, parent uint16, name string) uint16 {
	t.Helper()
	idx, err := allocator.ClaimInode(img)
	require.NoError(t, err)
	img.Inodes[idx].Encode(image.Record{Type: image.DataFile, Name: name})
	require.NoError(t, directory.AddEntry(img, parent, idx, name))
	return idx
}

func TestResolveNestedPath(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)

	a := mkdir(t, img, image.RootInodeIndex, "a")
	b := mkdir(t, img, a, "b")

	got, err := pathresolver.Resolve(img, image.RootInodeIndex, "a/b")
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestResolveDotDot(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)
	a := mkdir(t, img, image.RootInodeIndex, "a")
	mkdir(t, img, a, "b")

	got, err := pathresolver.Resolve(img, a, "b/..")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestResolveDotDotAtRootStaysAtRoot(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)

	got, err := pathresolver.Resolve(img, image.RootInodeIndex, "..")
	require.NoError(t, err)
	assert.Equal(t, uint16(image.RootInodeIndex), got)
}

func TestResolveMissingComponent(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)

	_, err = pathresolver.Resolve(img, image.RootInodeIndex, "nope")
	assert.Error(t, err)
}

func TestResolveParentSplitsBaseName(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)
	a := mkdir(t, img, image.RootInodeIndex, "a")

	parent, base, err := pathresolver.ResolveParent(img, image.RootInodeIndex, "a/newfile.txt")
	require.NoError(t, err)
	assert.Equal(t, a, parent)
	assert.Equal(t, "newfile.txt", base)
}

func TestResolveParentRejectsEmptyBase(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)
	_, _, err = pathresolver.ResolveParent(img, image.RootInodeIndex, "")
	assert.Error(t, err)
}

// TestResolveThroughNonDirectoryFails confirms a DATA_FILE encountered as an
// intermediate path component fails with DIR_NOT_FOUND instead of having its
// arbitrary content decoded as directory entries.
func TestResolveThroughNonDirectoryFails(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)
	mkfile(t, img, image.RootInodeIndex, "f")

	_, err = pathresolver.Resolve(img, image.RootInodeIndex, "f/x")
	assert.ErrorIs(t, err, retcode.ErrDirNotFound)
}

// TestResolveParentThroughNonDirectoryFails is the same check against
// ResolveParent's own intermediate-component loop.
func TestResolveParentThroughNonDirectoryFails(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)
	mkfile(t, img, image.RootInodeIndex, "f")

	_, _, err = pathresolver.ResolveParent(img, image.RootInodeIndex, "f/newfile.txt")
	assert.ErrorIs(t, err, retcode.ErrDirNotFound)
}

// TestResolveParentTruncatesLongBaseName confirms a base name over
// image.MaxFileNameLen bytes is truncated rather than rejected.
func TestResolveParentTruncatesLongBaseName(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)

	long := "abcdefghijklmnopqrstuvwxyz"
	_, base, err := pathresolver.ResolveParent(img, image.RootInodeIndex, long)
	require.NoError(t, err)
	assert.Equal(t, long[:image.MaxFileNameLen], base)
	assert.Len(t, base, image.MaxFileNameLen)
}
