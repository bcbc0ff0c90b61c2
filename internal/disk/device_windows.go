//go:build windows
// +build windows

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

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// diskGeometry mirrors the Win32 DISK_GEOMETRY structure returned by
// IOCTL_DISK_GET_DRIVE_GEOMETRY.
type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

const ioctlDiskGetDriveGeometry = 0x70000

// deviceGeometry queries a \\.\PhysicalDriveN handle for its total size and
// sector size via DeviceIoControl, the same call the teacher's
// WindowsDiskFile.Stat used for a single carved-file report's backing disk.
func deviceGeometry(f *os.File) (size int64, sectorSize int64, err error) {
	handle := windows.Handle(f.Fd())

	var geom diskGeometry
	var bytesReturned uint32
	ioErr := windows.DeviceIoControl(
		handle,
		ioctlDiskGetDriveGeometry,
		nil, 0,
		(*byte)(unsafe.Pointer(&geom)),
		uint32(unsafe.Sizeof(geom)),
		&bytesReturned,
		nil,
	)
	if ioErr != nil {
		size, seekErr := f.Seek(0, os.SEEK_END)
		if seekErr != nil {
			return 0, 0, newErr("deviceGeometry", KindSeek, seekErr)
		}
		return size, SectorSize, nil
	}

	total := geom.Cylinders * int64(geom.TracksPerCylinder) * int64(geom.SectorsPerTrack) * int64(geom.BytesPerSector)
	return total, int64(geom.BytesPerSector), nil
}

// probeCandidates lists the device paths disks.Enumerate tries on Windows:
// \\.\PhysicalDrive0 through \\.\PhysicalDrive15.
func probeCandidates() []string {
	paths := make([]string, 0, 16)
	for n := 0; n < 16; n++ {
		paths = append(paths, `\\.\PhysicalDrive`+itoaWin(n))
	}
	return paths
}

func itoaWin(n int) string {
	if n == 0 {
		return "0"
	}
	digits := [20]byte{}
	i := len(digits)
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits[i:])
}
