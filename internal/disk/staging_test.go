// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package disk_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeal8bit/zealdisk/internal/disk"
	"github.com/zeal8bit/zealdisk/internal/zealfs"
)

func newTestImage(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	dev, err := disk.Create(path, size)
	require.NoError(t, err)
	require.NoError(t, dev.Close())
	return path
}

func TestStaging_LoadBlankImageHasNoMBR(t *testing.T) {
	path := newTestImage(t, 4*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.False(t, st.HasMBR)
	require.False(t, st.Dirty())
}

func TestStaging_CreateMBR(t *testing.T) {
	path := newTestImage(t, 4*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.NoError(t, st.CreateMBR())
	require.True(t, st.HasMBR)
	require.True(t, st.Dirty())

	require.NoError(t, st.Commit(nil))
	require.False(t, st.Dirty())

	reloaded, err := disk.Load(path, true)
	require.NoError(t, err)
	require.True(t, reloaded.HasMBR)
}

func TestStaging_AllocateFormatCommitPartition(t *testing.T) {
	path := newTestImage(t, 8*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.NoError(t, st.CreateMBR())

	totalSectors := uint32(8 * 1024 * 1024 / disk.SectorSize)
	slot, err := st.AllocatePartition(4 /* 512KiB */, 1, disk.ZealFSPartitionType, totalSectors)
	require.NoError(t, err)
	require.GreaterOrEqual(t, slot, 0)

	require.NoError(t, st.FormatPartition(slot, zealfs.Format))
	require.NoError(t, st.Commit(nil))
	require.False(t, st.Dirty())

	entry := st.Committed.Partitions[slot]
	require.True(t, entry.Active())
	require.Equal(t, disk.ZealFSPartitionType, entry.PartitionType)

	dev, err := disk.OpenPartition(path, slot, false)
	require.NoError(t, err)
	defer dev.Close()

	ctx, err := zealfs.NewContext(dev)
	require.NoError(t, err)

	h, err := ctx.Opendir("/")
	require.NoError(t, err)
	entries, err := ctx.Readdir(h, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStaging_DeletePartition(t *testing.T) {
	path := newTestImage(t, 4*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.NoError(t, st.CreateMBR())

	totalSectors := uint32(4 * 1024 * 1024 / disk.SectorSize)
	slot, err := st.AllocatePartition(2, 1, disk.ZealFSPartitionType, totalSectors)
	require.NoError(t, err)
	require.NoError(t, st.Commit(nil))
	require.True(t, st.Committed.Partitions[slot].Active())

	require.NoError(t, st.DeletePartition(slot))
	require.NoError(t, st.Commit(nil))
	require.False(t, st.Committed.Partitions[slot].Active())
}

func TestStaging_Revert(t *testing.T) {
	path := newTestImage(t, 4*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.NoError(t, st.CreateMBR())
	require.True(t, st.Dirty())

	st.Revert()
	require.False(t, st.Dirty())
	require.False(t, st.HasMBR)
}

func TestStaging_AllocatePartition_NoFreeSlot(t *testing.T) {
	path := newTestImage(t, 32*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.NoError(t, st.CreateMBR())

	totalSectors := uint32(32 * 1024 * 1024 / disk.SectorSize)
	for i := 0; i < 4; i++ {
		_, err := st.AllocatePartition(3, 1, disk.ZealFSPartitionType, totalSectors)
		require.NoError(t, err)
	}

	_, err = st.AllocatePartition(3, 1, disk.ZealFSPartitionType, totalSectors)
	require.Error(t, err)

	var derr *disk.Error
	require.True(t, errors.As(err, &derr))
	require.Equal(t, disk.KindNoFreeSlot, derr.Kind)
}

func TestOpenPartition_RejectsInactiveSlot(t *testing.T) {
	path := newTestImage(t, 4*1024*1024)

	st, err := disk.Load(path, true)
	require.NoError(t, err)
	require.NoError(t, st.CreateMBR())
	require.NoError(t, st.Commit(nil))

	_, err = disk.OpenPartition(path, 0, false)
	require.Error(t, err)
}
