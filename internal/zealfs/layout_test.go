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

func TestPageSizeForPartition(t *testing.T) {
	cases := []struct {
		size     uint64
		wantPage int
	}{
		{32 * 1024, 256},
		{256 * 1024, 512},
		{1024 * 1024, 1024},
		{4 * 1024 * 1024, 2048},
		{16 * 1024 * 1024, 4096},
		{64 * 1024 * 1024, 8192},
		{256 * 1024 * 1024, 16384},
		{1024 * 1024 * 1024, 32768},
		{2 * 1024 * 1024 * 1024, 65536},
	}
	for _, c := range cases {
		page, _ := zealfs.PageSizeForPartition(c.size)
		require.Equal(t, c.wantPage, page, "size %d", c.size)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	raw, err := zealfs.Format(64 * 1024)
	require.NoError(t, err)

	pageSize, code := zealfs.PageSizeForPartition(64 * 1024)
	require.Equal(t, 3*pageSize, len(raw)) // header+bitmap+root directory, FAT, zero padding pages

	hdr, err := zealfs.ParseHeader(raw[:pageSize])
	require.NoError(t, err)
	require.EqualValues(t, zealfs.Magic, hdr.Magic)
	require.EqualValues(t, zealfs.Version, hdr.Version)
	require.Equal(t, code, hdr.PageSize)
	require.Equal(t, pageSize, hdr.PageSizeBytes())
}

func TestFormat_TooSmallForPageSize(t *testing.T) {
	_, err := zealfs.Format(1)
	require.Error(t, err)
	require.Equal(t, zealfs.KindInvalidArgument, zealfs.KindOf(err))
}

func TestHeader_EncodeParseRoundTrip(t *testing.T) {
	raw, err := zealfs.Format(256 * 1024)
	require.NoError(t, err)

	pageSize, _ := zealfs.PageSizeForPartition(256 * 1024)
	hdr, err := zealfs.ParseHeader(raw[:pageSize])
	require.NoError(t, err)

	encoded := hdr.Encode()
	reparsed, err := zealfs.ParseHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, hdr.FreePages, reparsed.FreePages)
	require.Equal(t, hdr.BitmapSize, reparsed.BitmapSize)
	require.Equal(t, hdr.Bitmap, reparsed.Bitmap)
}

func TestEncodeName_TooLong(t *testing.T) {
	_, err := zealfs.EncodeName("thisfilenameiswaytoolongforadirentry.bin")
	require.Error(t, err)
	require.Equal(t, zealfs.KindNameTooLong, zealfs.KindOf(err))
}

func TestEntry_NameString_TrimsPadding(t *testing.T) {
	enc, err := zealfs.EncodeName("readme.txt")
	require.NoError(t, err)
	e := zealfs.Entry{Name: enc}
	require.Equal(t, "readme.txt", e.NameString())
}

func TestEntry_OccupiedAndIsDir(t *testing.T) {
	var e zealfs.Entry
	require.False(t, e.Occupied())
	require.False(t, e.IsDir())

	e.Flags = zealfs.FlagOccupied
	require.True(t, e.Occupied())
	require.False(t, e.IsDir())

	e.Flags |= zealfs.FlagIsDir
	require.True(t, e.IsDir())
}
