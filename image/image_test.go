package image_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	"github.com/yusufbadar/unixfs/image"
)

func TestNewRootDirectory(t *testing.T) {
	img, err := image.New(16, 32)
	require.NoError(t, err)

	root := img.Inodes[image.RootInodeIndex].Decode()
	assert.Equal(t, image.Directory, root.Type)
	assert.Equal(t, "root", root.Name)
	assert.EqualValues(t, image.DirectoryEntrySize, root.Size)
	assert.EqualValues(t, 0, root.Direct[0])

	assert.False(t, img.DBlockFree(0))
	assert.True(t, img.DBlockFree(1))

	assert.Equal(t, byte('.'), img.DBlocks[2])
}

func TestNewRejectsZero(t *testing.T) {
	_, err := image.New(0, 32)
	assert.Error(t, err)
	_, err = image.New(16, 0)
	assert.Error(t, err)
}

func TestFreeInodeChain(t *testing.T) {
	img, err := image.New(4, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 1, img.FreeInodeHead)
	assert.EqualValues(t, 2, img.Inodes[1].NextFreeInode())
	assert.EqualValues(t, 3, img.Inodes[2].NextFreeInode())
	assert.EqualValues(t, 0, img.Inodes[3].NextFreeInode())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, img.Save(&buf))

	loaded, err := image.Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, img.Inodes, loaded.Inodes)
	assert.Equal(t, img.FreeInodeHead, loaded.FreeInodeHead)
	assert.Equal(t, img.DBlockCount, loaded.DBlockCount)
	assert.Equal(t, []byte(img.DBlockBitmap), []byte(loaded.DBlockBitmap))
	assert.Equal(t, img.DBlocks, loaded.DBlocks)
}

// TestSaveLoadRoundTripOverSeeker exercises the same round trip over an
// in-memory io.ReadWriteSeeker instead of a bytes.Buffer, the same stream
// type dargueta-disko/testing.LoadDiskImage hands its own tests.
func TestSaveLoadRoundTripOverSeeker(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)

	// 18-byte header + inode table + dblock bitmap + dblock arena, matching
	// Save's own size computation.
	total := 18 + len(img.Inodes)*image.RawInodeSize + (16+7)/8 + len(img.DBlocks)
	stream := bytesextra.NewReadWriteSeeker(make([]byte, total))

	require.NoError(t, img.Save(stream))
	_, err = stream.Seek(0, io.SeekStart)
	require.NoError(t, err)

	loaded, err := image.Load(stream)
	require.NoError(t, err)

	assert.Equal(t, img.Inodes, loaded.Inodes)
	assert.Equal(t, img.DBlocks, loaded.DBlocks)
}

func TestLoadRejectsTruncated(t *testing.T) {
	_, err := image.Load(bytes.NewReader([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestCheckFreshImageIsConsistent(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	assert.NoError(t, image.Check(img))
}

func TestCheckDetectsRootOnFreeList(t *testing.T) {
	img, err := image.New(4, 8)
	require.NoError(t, err)
	img.FreeInodeHead = image.RootInodeIndex
	assert.Error(t, image.Check(img))
}
