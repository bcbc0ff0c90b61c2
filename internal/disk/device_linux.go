//go:build linux
// +build linux

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
	"syscall"
	"unsafe"
)

// Linux ioctl request numbers for block device geometry, matching the
// kernel's <linux/fs.h>.
const (
	blkSSZGET    = 0x1268
	blkGETSIZE64 = 0x80081272
)

// deviceGeometry reports the size and logical sector size of a Linux block
// device via BLKGETSIZE64/BLKSSZGET. Falls back to seek-based sizing and the
// default sector size if the ioctls are unavailable (e.g. loop devices on
// some kernels).
func deviceGeometry(f *os.File) (size int64, sectorSize int64, err error) {
	sectorSize = SectorSize

	var ss uint32
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), blkSSZGET, uintptr(unsafe.Pointer(&ss))); errno == 0 && ss > 0 {
		sectorSize = int64(ss)
	}

	var sz int64
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL, f.Fd(), blkGETSIZE64, uintptr(unsafe.Pointer(&sz))); errno == 0 {
		return sz, sectorSize, nil
	}

	size, seekErr := f.Seek(0, os.SEEK_END)
	if seekErr != nil {
		return 0, 0, newErr("deviceGeometry", KindSeek, seekErr)
	}
	return size, sectorSize, nil
}

// probeCandidates lists the device paths disks.Enumerate tries on Linux,
// grounded in original_source/src/disk_linux.c's disk_list, which probes
// /dev/sda through /dev/sdz.
func probeCandidates() []string {
	paths := make([]string, 0, 26+32)
	for c := byte('a'); c <= 'z'; c++ {
		paths = append(paths, "/dev/sd"+string(c))
	}
	for n := 0; n < 16; n++ {
		for p := 1; p <= 2; p++ {
			paths = append(paths, "/dev/nvme"+itoa(n)+"n"+itoa(p))
		}
	}
	return paths
}

func itoa(n int) string {
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
