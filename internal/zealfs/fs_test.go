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
package zealfs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeal8bit/zealdisk/internal/zealfs"
)

// memDevice is a partition backed entirely by memory, implementing the
// io.ReaderAt/io.WriterAt pair zealfs.NewContext needs from a device.
type memDevice struct {
	data []byte
}

func newMemDevice(size int) *memDevice {
	return &memDevice{data: make([]byte, size)}
}

func (d *memDevice) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, d.data[off:])
	return n, nil
}

func (d *memDevice) WriteAt(p []byte, off int64) (int, error) {
	n := copy(d.data[off:], p)
	return n, nil
}

func newTestContext(t *testing.T, partitionSize uint64) *zealfs.Context {
	t.Helper()
	raw, err := zealfs.Format(partitionSize)
	require.NoError(t, err)

	dev := newMemDevice(int(partitionSize))
	copy(dev.data, raw)

	ctx, err := zealfs.NewContext(dev)
	require.NoError(t, err)
	return ctx
}

func TestContext_CreateWriteReadFile(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	h, err := ctx.Create("hello.txt")
	require.NoError(t, err)

	payload := []byte("hello, zealfs")
	n, err := ctx.Write(h, payload, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, ctx.Flush(h))

	opened, err := ctx.Open("hello.txt")
	require.NoError(t, err)
	require.EqualValues(t, len(payload), opened.Entry.Size)

	buf := make([]byte, len(payload))
	n, err = ctx.Read(opened, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestContext_WriteSpanningMultiplePages(t *testing.T) {
	ctx := newTestContext(t, 64*1024) // 256-byte pages

	h, err := ctx.Create("big.bin")
	require.NoError(t, err)

	payload := make([]byte, 700) // spans 3 pages at 256 bytes each
	for i := range payload {
		payload[i] = byte(i)
	}
	_, err = ctx.Write(h, payload, 0)
	require.NoError(t, err)
	require.NoError(t, ctx.Flush(h))

	opened, err := ctx.Open("big.bin")
	require.NoError(t, err)

	buf := make([]byte, len(payload))
	n, err := ctx.Read(opened, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.Equal(t, payload, buf)
}

func TestContext_MkdirOpendirReaddir(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	_, err := ctx.Mkdir("docs")
	require.NoError(t, err)

	h, err := ctx.Create("docs/readme.txt")
	require.NoError(t, err)
	_, err = ctx.Write(h, []byte("hi"), 0)
	require.NoError(t, err)
	require.NoError(t, ctx.Flush(h))

	dh, err := ctx.Opendir("docs")
	require.NoError(t, err)
	entries, err := ctx.Readdir(dh, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "readme.txt", entries[0].NameString())
	require.False(t, entries[0].IsDir())

	root, err := ctx.Opendir("/")
	require.NoError(t, err)
	rootEntries, err := ctx.Readdir(root, 0)
	require.NoError(t, err)
	require.Len(t, rootEntries, 1)
	require.Equal(t, "docs", rootEntries[0].NameString())
	require.True(t, rootEntries[0].IsDir())
}

func TestContext_Open_NotFound(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	_, err := ctx.Open("missing.txt")
	require.Error(t, err)
	require.Equal(t, zealfs.KindNotFound, zealfs.KindOf(err))
}

func TestContext_Create_AlreadyExists(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	_, err := ctx.Create("dup.txt")
	require.NoError(t, err)

	_, err = ctx.Create("dup.txt")
	require.Error(t, err)
	require.Equal(t, zealfs.KindAlreadyExists, zealfs.KindOf(err))
}

func TestContext_Unlink(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	h, err := ctx.Create("gone.txt")
	require.NoError(t, err)
	_, err = ctx.Write(h, []byte("bye"), 0)
	require.NoError(t, err)
	require.NoError(t, ctx.Flush(h))

	require.NoError(t, ctx.Unlink("gone.txt"))

	_, err = ctx.Open("gone.txt")
	require.Error(t, err)
	require.Equal(t, zealfs.KindNotFound, zealfs.KindOf(err))
}

func TestContext_Rmdir_RefusesNonEmpty(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	_, err := ctx.Mkdir("full")
	require.NoError(t, err)
	_, err = ctx.Create("full/file.txt")
	require.NoError(t, err)

	err = ctx.Rmdir("full")
	require.Error(t, err)
	require.Equal(t, zealfs.KindNotEmpty, zealfs.KindOf(err))
}

func TestContext_Rmdir_RemovesEmptyDir(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	_, err := ctx.Mkdir("empty")
	require.NoError(t, err)

	require.NoError(t, ctx.Rmdir("empty"))

	_, err = ctx.Opendir("empty")
	require.Error(t, err)
	require.Equal(t, zealfs.KindNotFound, zealfs.KindOf(err))
}

func TestContext_Open_RejectsDirectory(t *testing.T) {
	ctx := newTestContext(t, 256*1024)

	_, err := ctx.Mkdir("adir")
	require.NoError(t, err)

	_, err = ctx.Open("adir")
	require.Error(t, err)
	require.Equal(t, zealfs.KindIsDirectory, zealfs.KindOf(err))
}

func TestContext_FreeSpaceShrinksOnWrite(t *testing.T) {
	ctx := newTestContext(t, 64*1024)
	before := ctx.FreeSpace()
	// 64KiB partitions use 256-byte pages with a single FAT page, so only
	// the header page and that one FAT page start out occupied.
	require.Equal(t, ctx.TotalSpace(), before+2*256)

	h, err := ctx.Create("f.bin")
	require.NoError(t, err)
	_, err = ctx.Write(h, make([]byte, 1000), 0)
	require.NoError(t, err)
	require.NoError(t, ctx.Flush(h))

	after := ctx.FreeSpace()
	require.Less(t, after, before)
}
