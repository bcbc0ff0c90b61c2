//go:build !linux && !windows
// +build !linux,!windows

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

// Other platforms (macOS, BSDs) get no ioctl-based geometry query and no
// device probe list; raw devices still work through the generic seek-based
// path, they're just never auto-discovered by `disks list`.
package disk

import "os"

func deviceGeometry(f *os.File) (size int64, sectorSize int64, err error) {
	size, seekErr := f.Seek(0, os.SEEK_END)
	if seekErr != nil {
		return 0, 0, newErr("deviceGeometry", KindSeek, seekErr)
	}
	return size, SectorSize, nil
}

func probeCandidates() []string { return nil }
