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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeal8bit/zealdisk/internal/disk"
)

func TestMBR_EmitParseRoundTrip(t *testing.T) {
	m := disk.NewEmptyMBR()
	m.PartitionEntries[0].PartitionType = disk.ZealFSPartitionType
	m.PartitionEntries[0].WriteStartLBA(2048)
	m.PartitionEntries[0].WriteTotalSectors(4096)

	raw := disk.EmitMBR(m)
	require.Len(t, raw, disk.MBRSize)

	parsed, err := disk.ParseMBR(raw)
	require.NoError(t, err)
	require.EqualValues(t, 0xAA55, parsed.ReadSignature())
	require.Equal(t, disk.ZealFSPartitionType, parsed.PartitionEntries[0].PartitionType)
	require.EqualValues(t, 2048, parsed.PartitionEntries[0].ReadStartLBA())
	require.EqualValues(t, 4096, parsed.PartitionEntries[0].ReadTotalSectors())
}

func TestParseMBR_RejectsBadSignature(t *testing.T) {
	raw := make([]byte, disk.MBRSize)
	_, err := disk.ParseMBR(raw)
	require.Error(t, err)
}

func TestParseMBR_RejectsWrongSize(t *testing.T) {
	_, err := disk.ParseMBR(make([]byte, 10))
	require.Error(t, err)
}

func TestMBRPartitionEntry_Active(t *testing.T) {
	var e disk.MBRPartitionEntry
	require.False(t, e.Active())

	e.WriteTotalSectors(10)
	require.True(t, e.Active())
}

func TestLargestFreeGap_EmptyDisk(t *testing.T) {
	var entries [4]disk.MBRPartitionEntry
	start, size := disk.LargestFreeGap(entries, 1000)
	require.EqualValues(t, 1, start)
	require.EqualValues(t, 999, size)
}

func TestLargestFreeGap_BetweenPartitions(t *testing.T) {
	var entries [4]disk.MBRPartitionEntry
	entries[0].WriteStartLBA(1)
	entries[0].WriteTotalSectors(99)
	entries[0].PartitionType = disk.ZealFSPartitionType

	entries[1].WriteStartLBA(500)
	entries[1].WriteTotalSectors(100)
	entries[1].PartitionType = disk.ZealFSPartitionType

	start, size := disk.LargestFreeGap(entries, 1000)
	// Biggest gap is between the two partitions: [100, 500) = 400 sectors.
	require.EqualValues(t, 100, start)
	require.EqualValues(t, 400, size)
}

func TestAlignGap_RoundsUpStart(t *testing.T) {
	start, size := disk.AlignGap(10, 100, 16)
	require.EqualValues(t, 16, start)
	require.EqualValues(t, 94, size)
}

func TestAlignGap_NoopWhenAlreadyAligned(t *testing.T) {
	start, size := disk.AlignGap(16, 100, 16)
	require.EqualValues(t, 16, start)
	require.EqualValues(t, 100, size)
}

func TestAlignGap_ShrinksToZeroWhenTooSmall(t *testing.T) {
	start, size := disk.AlignGap(1, 2, 16)
	require.EqualValues(t, 16, start)
	require.EqualValues(t, 0, size)
}

func TestGetFSType_KnownAndUnknown(t *testing.T) {
	require.Equal(t, "ZealFS v2", disk.GetFSType(disk.ZealFSPartitionType))
	require.Equal(t, "Empty", disk.GetFSType(disk.PartitionTypeEmpty))
	require.Equal(t, "Unknown", disk.GetFSType(disk.MBRPartition(0x7F)))
}
