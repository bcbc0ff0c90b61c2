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

import "fmt"

// PartitionView is a BlockDevice restricted to one partition's byte range
// within a larger device, so a zealfs.Context can address page 0 of a
// partition without knowing where that partition starts on the disk.
type PartitionView struct {
	dev    BlockDevice
	offset int64
	size   int64
}

func (v *PartitionView) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > v.size {
		return 0, newErr("ReadAt", KindInvalidArgument, fmt.Errorf("out of partition bounds"))
	}
	return v.dev.ReadAt(p, v.offset+off)
}

func (v *PartitionView) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > v.size {
		return 0, newErr("WriteAt", KindInvalidArgument, fmt.Errorf("out of partition bounds"))
	}
	return v.dev.WriteAt(p, v.offset+off)
}

func (v *PartitionView) Close() error { return v.dev.Close() }
func (v *PartitionView) Size() int64  { return v.size }

// OpenPartition opens devPath and returns a BlockDevice windowed onto the
// slot'th committed partition entry (0-based). When the disk has no MBR at
// all (the whole-disk-is-ZealFS case Load detects), slot must be 0 and the
// view spans the entire device.
func OpenPartition(devPath string, slot int, readWrite bool) (BlockDevice, error) {
	st, err := Load(devPath, false)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= len(st.Committed.Partitions) {
		return nil, newErr("OpenPartition", KindInvalidArgument, fmt.Errorf("partition index %d out of range", slot))
	}
	entry := st.Committed.Partitions[slot]
	if !entry.Active() {
		return nil, newErr("OpenPartition", KindNotFound, fmt.Errorf("no partition at slot %d", slot))
	}

	dev, err := Open(devPath, readWrite)
	if err != nil {
		return nil, err
	}
	return &PartitionView{
		dev:    dev,
		offset: int64(entry.ReadStartLBA()) * SectorSize,
		size:   int64(entry.ReadTotalSectors()) * SectorSize,
	}, nil
}
