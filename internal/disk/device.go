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

// Package disk implements the block device adapter, MBR model and staging
// manager described for zealdisk: a uniform read/write surface over raw
// devices and disk image files, an MBR partition table editor operating on
// staged-vs-committed state, and the size-table/alignment helpers the
// staging manager needs.
package disk

import (
	"fmt"
	"io"
	"os"
)

// MaxDiskSize is the largest disk zealdisk will operate on; the MBR's
// 32-bit LBA fields comfortably fit disks up to this size (a single ZealFS
// v2 partition is at most 4 GiB), and the original tool enforces the same
// cap.
const MaxDiskSize = 32 * 1024 * 1024 * 1024 // 32 GiB

// SectorSize is the logical sector size zealdisk assumes everywhere an
// explicit device geometry query is unavailable.
const SectorSize = 512

// BlockDevice is a uniform read/write surface over a disk image file or a
// raw block device, aligned to SectorSize boundaries internally so callers
// never have to special-case the two.
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Size() int64
}

// FileBlockDevice backs a BlockDevice with a regular disk image file. Reads
// and writes pass straight through to the OS, which already supports
// arbitrary offsets and lengths on regular files.
type FileBlockDevice struct {
	f    *os.File
	size int64
}

func (d *FileBlockDevice) ReadAt(p []byte, off int64) (int, error)  { return d.f.ReadAt(p, off) }
func (d *FileBlockDevice) WriteAt(p []byte, off int64) (int, error) { return d.f.WriteAt(p, off) }
func (d *FileBlockDevice) Close() error                             { return d.f.Close() }
func (d *FileBlockDevice) Size() int64                              { return d.size }

// RawBlockDevice backs a BlockDevice with a raw block device path (e.g.
// /dev/sda, \\.\PhysicalDrive0). The kernel usually refuses reads/writes
// that aren't aligned to the device's sector size, and some OSes (macOS in
// particular, per the original tool's notes) reject writes smaller than a
// full sector even when the offset is aligned — so every access here is
// routed through a sector-aligned scratch buffer.
type RawBlockDevice struct {
	f          *os.File
	size       int64
	sectorSize int64
}

func (d *RawBlockDevice) Size() int64 { return d.size }

func (d *RawBlockDevice) Close() error { return d.f.Close() }

func (d *RawBlockDevice) ReadAt(p []byte, off int64) (int, error) {
	alignedOff := off - off%d.sectorSize
	skip := int(off - alignedOff)
	alignedLen := roundUp64(int64(skip+len(p)), d.sectorSize)

	buf := make([]byte, alignedLen)
	_, err := d.f.ReadAt(buf, alignedOff)
	if err != nil && err != io.EOF {
		return 0, newErr("ReadAt", KindIoError, err)
	}
	copy(p, buf[skip:])
	return len(p), nil
}

func (d *RawBlockDevice) WriteAt(p []byte, off int64) (int, error) {
	alignedOff := off - off%d.sectorSize
	skip := int(off - alignedOff)
	alignedLen := roundUp64(int64(skip+len(p)), d.sectorSize)

	buf := make([]byte, alignedLen)
	if _, err := d.f.ReadAt(buf, alignedOff); err != nil && err != io.EOF {
		return 0, newErr("WriteAt", KindIoError, err)
	}
	copy(buf[skip:], p)

	if _, err := d.f.WriteAt(buf, alignedOff); err != nil {
		return 0, newErr("WriteAt", KindIoError, err)
	}
	return len(p), nil
}

func roundUp64(v, align int64) int64 {
	if v%align == 0 {
		return v
	}
	return (v/align + 1) * align
}

// Open opens path as a BlockDevice, choosing the raw or file backend
// depending on whether the path refers to a block device. readWrite
// controls whether the underlying handle accepts writes.
func Open(path string, readWrite bool) (BlockDevice, error) {
	flag := os.O_RDONLY
	if readWrite {
		flag = os.O_RDWR
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, newErr("Open", KindNotFound, err)
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, newErr("Open", KindPermissionDenied, err)
		}
		return nil, newErr("Open", KindIoError, err)
	}

	if info.Mode()&os.ModeDevice != 0 {
		size, sectorSize, err := deviceGeometry(f)
		if err != nil {
			f.Close()
			return nil, newErr("Open", KindIoError, err)
		}
		if size > MaxDiskSize {
			f.Close()
			return nil, newErr("Open", KindOversizedDisk, fmt.Errorf("%s is %d bytes", path, size))
		}
		return &RawBlockDevice{f: f, size: size, sectorSize: sectorSize}, nil
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, newErr("Open", KindSeek, err)
	}
	if size > MaxDiskSize {
		f.Close()
		return nil, newErr("Open", KindOversizedDisk, fmt.Errorf("%s is %d bytes", path, size))
	}
	return &FileBlockDevice{f: f, size: size}, nil
}

// Create creates a new disk image file of the given size. The file is
// sparse where the OS supports it.
func Create(path string, size int64) (BlockDevice, error) {
	if size <= 0 || size > MaxDiskSize {
		return nil, newErr("Create", KindInvalidArgument, fmt.Errorf("invalid image size %d", size))
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, newErr("Create", KindIoError, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, newErr("Create", KindIoError, err)
	}
	return &FileBlockDevice{f: f, size: size}, nil
}
