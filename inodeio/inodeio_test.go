package inodeio_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufbadar/unixfs/allocator"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/inodeio"
)

func newFileInode(t *testing.T, img *image.Image) uint16 {
	t.Helper()
	idx, err := allocator.ClaimInode(img)
	require.NoError(t, err)
	rec := image.Record{Type: image.DataFile, Perms: image.PermRead | image.PermWrite, Name: "f"}
	img.Inodes[idx].Encode(rec)
	return idx
}

func TestWriteReadRoundTrip(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	idx := newFileInode(t, img)

	payload := bytes.Repeat([]byte("x"), 200)
	require.NoError(t, inodeio.WriteData(img, idx, payload))

	buf := make([]byte, 200)
	n, err := inodeio.ReadData(img, idx, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, 200, n)
	assert.Equal(t, payload, buf)
}

func TestWriteAcrossIndirectBlocks(t *testing.T) {
	img, err := image.New(8, 64)
	require.NoError(t, err)
	idx := newFileInode(t, img)

	// 4 direct blocks (256B) + 20 indirect blocks (1280B) = well past one
	// index block (15 slots).
	payload := make([]byte, 256+20*64)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, inodeio.WriteData(img, idx, payload))

	buf := make([]byte, len(payload))
	n, err := inodeio.ReadData(img, idx, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, buf)
}

func TestReadPastEndOfFile(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	idx := newFileInode(t, img)
	require.NoError(t, inodeio.WriteData(img, idx, []byte("hello")))

	buf := make([]byte, 10)
	n, err := inodeio.ReadData(img, idx, 5, buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestModifyOverwriteOnly(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	idx := newFileInode(t, img)
	require.NoError(t, inodeio.WriteData(img, idx, []byte("hello world")))

	require.NoError(t, inodeio.ModifyData(img, idx, 6, []byte("THERE")))

	buf := make([]byte, 11)
	_, err = inodeio.ReadData(img, idx, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello THERE", string(buf))
}

func TestModifyAppendsPastEnd(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	idx := newFileInode(t, img)
	require.NoError(t, inodeio.WriteData(img, idx, []byte("hello")))

	require.NoError(t, inodeio.ModifyData(img, idx, 3, []byte("LOWORLD")))

	buf := make([]byte, 10)
	n, err := inodeio.ReadData(img, idx, 0, buf)
	require.NoError(t, err)
	assert.Equal(t, "helLOWORLD", string(buf[:n]))
}

func TestModifyOffsetBeyondSizeIsInvalid(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	idx := newFileInode(t, img)
	require.NoError(t, inodeio.WriteData(img, idx, []byte("hi")))

	err = inodeio.ModifyData(img, idx, 10, []byte("x"))
	assert.Error(t, err)
}

func TestShrinkReleasesDirectAndIndirectBlocks(t *testing.T) {
	img, err := image.New(8, 64)
	require.NoError(t, err)
	idx := newFileInode(t, img)

	payload := make([]byte, 256+20*64)
	require.NoError(t, inodeio.WriteData(img, idx, payload))
	before := allocator.AvailableDBlocks(img)

	require.NoError(t, inodeio.ShrinkData(img, idx, 10))
	after := allocator.AvailableDBlocks(img)
	assert.Greater(t, after, before)

	rec := img.Inodes[idx].Decode()
	assert.EqualValues(t, 10, rec.Size)
}

func TestReleaseDataFreesEverything(t *testing.T) {
	img, err := image.New(8, 16)
	require.NoError(t, err)
	idx := newFileInode(t, img)
	require.NoError(t, inodeio.WriteData(img, idx, bytes.Repeat([]byte("a"), 100)))

	before := allocator.AvailableDBlocks(img)
	require.NoError(t, inodeio.ReleaseData(img, idx))
	after := allocator.AvailableDBlocks(img)
	assert.Greater(t, after, before)

	rec := img.Inodes[idx].Decode()
	assert.EqualValues(t, 0, rec.Size)
}

func TestWriteInsufficientDBlocksLeavesImageUnmodified(t *testing.T) {
	img, err := image.New(8, 2) // block 0 used by root; only 1 free.
	require.NoError(t, err)
	idx := newFileInode(t, img)

	before := allocator.AvailableDBlocks(img)
	err = inodeio.WriteData(img, idx, make([]byte, 1000))
	assert.Error(t, err)
	assert.Equal(t, before, allocator.AvailableDBlocks(img))

	rec := img.Inodes[idx].Decode()
	assert.EqualValues(t, 0, rec.Size)
}
