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
package disk

import "github.com/dustin/go-humanize"

// partitionSizes is the fixed list of partition sizes offered when
// allocating a new partition, in bytes. Matches
// original_source/src/disk.c's disk_get_size_of_idx table (32 KiB to 4 GiB).
var partitionSizes = []uint64{
	32 * 1024,
	64 * 1024,
	128 * 1024,
	256 * 1024,
	512 * 1024,
	1 * 1024 * 1024,
	2 * 1024 * 1024,
	4 * 1024 * 1024,
	8 * 1024 * 1024,
	16 * 1024 * 1024,
	32 * 1024 * 1024,
	64 * 1024 * 1024,
	128 * 1024 * 1024,
	256 * 1024 * 1024,
	512 * 1024 * 1024,
	1024 * 1024 * 1024,
	2 * 1024 * 1024 * 1024,
	4 * 1024 * 1024 * 1024,
}

// PartitionSizeList returns the human-readable labels for every entry in
// partitionSizes, e.g. "32 KiB", "1.0 GiB".
func PartitionSizeList() []string {
	labels := make([]string, len(partitionSizes))
	for i, s := range partitionSizes {
		labels[i] = humanize.IBytes(s)
	}
	return labels
}

// PartitionSizeOf returns the size in bytes of the partition size table
// entry at index. Mirrors original_source/src/disk.c's disk_get_size_of_idx.
func PartitionSizeOf(index int) (uint64, error) {
	if index < 0 || index >= len(partitionSizes) {
		return 0, newErr("PartitionSizeOf", KindInvalidArgument, nil)
	}
	return partitionSizes[index], nil
}

// PartitionSizeCount returns the number of selectable partition sizes.
func PartitionSizeCount() int { return len(partitionSizes) }
