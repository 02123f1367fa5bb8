package allocator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufbadar/unixfs/allocator"
	"github.com/yusufbadar/unixfs/image"
	"github.com/yusufbadar/unixfs/retcode"
)

func newImage(t *testing.T, inodes int, dblocks uint32) *image.Image {
	t.Helper()
	img, err := image.New(inodes, dblocks)
	require.NoError(t, err)
	return img
}

func TestClaimReleaseInode(t *testing.T) {
	img := newImage(t, 4, 8)
	assert.Equal(t, 3, allocator.AvailableInodes(img))

	idx, err := allocator.ClaimInode(img)
	require.NoError(t, err)
	assert.EqualValues(t, 1, idx)
	assert.Equal(t, 2, allocator.AvailableInodes(img))

	require.NoError(t, allocator.ReleaseInode(img, idx))
	assert.Equal(t, 3, allocator.AvailableInodes(img))
}

func TestClaimInodeExhausted(t *testing.T) {
	img := newImage(t, 2, 8)
	_, err := allocator.ClaimInode(img)
	require.NoError(t, err)
	_, err = allocator.ClaimInode(img)
	assert.ErrorIs(t, err, retcode.ErrInodeUnavailable)
}

func TestReleaseRootInodeFails(t *testing.T) {
	img := newImage(t, 4, 8)
	err := allocator.ReleaseInode(img, image.RootInodeIndex)
	assert.Error(t, err)
}

func TestClaimReleaseDBlock(t *testing.T) {
	img := newImage(t, 4, 8)
	before := allocator.AvailableDBlocks(img)

	idx, err := allocator.ClaimDBlock(img)
	require.NoError(t, err)
	assert.Equal(t, before-1, allocator.AvailableDBlocks(img))

	require.NoError(t, allocator.ReleaseDBlock(img, idx))
	assert.Equal(t, before, allocator.AvailableDBlocks(img))
}

func TestClaimDBlockExhausted(t *testing.T) {
	img := newImage(t, 4, 1)
	// block 0 is already claimed by the root directory.
	_, err := allocator.ClaimDBlock(img)
	assert.Error(t, err)
}
