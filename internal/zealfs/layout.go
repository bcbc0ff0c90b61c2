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
package zealfs

import (
	"encoding/binary"
	"fmt"
)

// Magic is the first header byte of every ZealFS v2 partition.
const Magic = 'Z'

// Version is the filesystem version this package implements.
const Version = 2

// NameMaxLen is the maximum length of a path component, including
// extension.
const NameMaxLen = 16

// DirEntrySize is the on-disk size of a directory entry.
const DirEntrySize = 32

// Directory entry flag bits, from original_source/include/zealfs_v2.h.
const (
	FlagIsDir     = 1 << 0
	FlagOccupied  = 1 << 7
)

// HeaderSize is the fixed size of the non-bitmap portion of the header.
const HeaderSize = 7

// pageSizeCodes maps a page size in bytes to its on-disk code. Built as an
// explicit table rather than the original's
// `((sizeof(int)*8) - __builtin_clz(page_size_bytes >> 8)) - 1` formula,
// which is undefined behaviour for the 256-byte case (clz of zero) - the
// Open Question in spec.md resolves this in favor of a table.
var pageSizeCodes = map[int]uint8{
	256:   0,
	512:   1,
	1024:  2,
	2048:  3,
	4096:  4,
	8192:  5,
	16384: 6,
	32768: 7,
	65536: 8,
}

var pageSizesByCode = func() map[uint8]int {
	m := make(map[uint8]int, len(pageSizeCodes))
	for size, code := range pageSizeCodes {
		m[code] = size
	}
	return m
}()

// PageSizeForPartition returns the recommended page size in bytes for a
// partition of the given size, and its on-disk code. Thresholds are
// unchanged from original_source/include/zealfs_v2.h's zealfsv2_page_size.
func PageSizeForPartition(partitionSize uint64) (pageSize int, code uint8) {
	const KB = 1024
	const MB = 1024 * KB
	const GB = 1024 * MB

	switch {
	case partitionSize <= 64*KB:
		pageSize = 256
	case partitionSize <= 256*KB:
		pageSize = 512
	case partitionSize <= 1*MB:
		pageSize = 1024
	case partitionSize <= 4*MB:
		pageSize = 2048
	case partitionSize <= 16*MB:
		pageSize = 4096
	case partitionSize <= 64*MB:
		pageSize = 8192
	case partitionSize <= 256*MB:
		pageSize = 16384
	case partitionSize <= 1*GB:
		pageSize = 32768
	default:
		pageSize = 65536
	}
	return pageSize, pageSizeCodes[pageSize]
}

// fatPageCount returns how many pages the FAT occupies: one page if the
// page size is 256 bytes (a 256-byte page holds 128 uint16 FAT entries),
// two otherwise.
func fatPageCount(pageSize int) int {
	if pageSize == 256 {
		return 1
	}
	return 2
}

// Header is the decoded form of a ZealFS v2 partition header.
type Header struct {
	Magic      uint8
	Version    uint8
	BitmapSize uint16
	FreePages  uint16
	PageSize   uint8
	Bitmap     []byte

	pageSizeBytes int
}

// PageSizeBytes returns the page size in bytes this header was formatted
// with.
func (h *Header) PageSizeBytes() int {
	if h.pageSizeBytes != 0 {
		return h.pageSizeBytes
	}
	return pageSizesByCode[h.PageSize]
}

// ParseHeader decodes a header (plus its trailing bitmap) from the first
// page of a partition.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, newErr("ParseHeader", KindInvalidArgument, fmt.Errorf("buffer too small"))
	}
	h := &Header{
		Magic:      data[0],
		Version:    data[1],
		BitmapSize: binary.LittleEndian.Uint16(data[2:4]),
		FreePages:  binary.LittleEndian.Uint16(data[4:6]),
		PageSize:   data[6],
	}
	if h.Magic != Magic {
		return nil, newErr("ParseHeader", KindInvalidArgument, fmt.Errorf("bad magic byte 0x%02x", h.Magic))
	}
	h.pageSizeBytes = pageSizesByCode[h.PageSize]
	if h.pageSizeBytes == 0 {
		return nil, newErr("ParseHeader", KindInvalidArgument, fmt.Errorf("unknown page size code %d", h.PageSize))
	}
	end := HeaderSize + int(h.BitmapSize)
	if end > len(data) {
		return nil, newErr("ParseHeader", KindInvalidArgument, fmt.Errorf("bitmap truncated"))
	}
	h.Bitmap = append([]byte(nil), data[HeaderSize:end]...)
	return h, nil
}

// Encode serializes the header and bitmap back into a byte slice sized to
// the page size.
func (h *Header) Encode() []byte {
	buf := make([]byte, h.PageSizeBytes())
	buf[0] = h.Magic
	buf[1] = h.Version
	binary.LittleEndian.PutUint16(buf[2:4], h.BitmapSize)
	binary.LittleEndian.PutUint16(buf[4:6], h.FreePages)
	buf[6] = h.PageSize
	copy(buf[7:], h.Bitmap)
	return buf
}

// PageFree reports whether page n is marked free in the bitmap.
func (h *Header) PageFree(n int) bool {
	byteIdx, bit := n/8, uint(n%8)
	if byteIdx >= len(h.Bitmap) {
		return false
	}
	return h.Bitmap[byteIdx]&(1<<bit) == 0
}

// SetPageUsed marks page n as occupied in the bitmap.
func (h *Header) SetPageUsed(n int) {
	byteIdx, bit := n/8, uint(n%8)
	if byteIdx < len(h.Bitmap) {
		h.Bitmap[byteIdx] |= 1 << bit
	}
}

// SetPageFree marks page n as free in the bitmap.
func (h *Header) SetPageFree(n int) {
	byteIdx, bit := n/8, uint(n%8)
	if byteIdx < len(h.Bitmap) {
		h.Bitmap[byteIdx] &^= 1 << bit
	}
}

// TotalPages returns how many pages the partition holds, derived from the
// bitmap size (one bit per page).
func (h *Header) TotalPages() int { return int(h.BitmapSize) * 8 }

// rawHeaderSize is sizeof(zealfs_header_t) in the C layout: magic, version,
// bitmap_size, free_pages, page_size - not counting the trailing bitmap.
const rawHeaderSize = 7

func alignUp(v, bound int) int { return (v + bound - 1) &^ (bound - 1) }

// FSHeaderSize returns the size, rounded up to a directory-entry boundary,
// of the header plus its bitmap. The root directory's entries begin
// immediately after this many bytes into page 0. Mirrors
// original_source/src/zealfs/zealfs_v2.c's get_fs_header_size.
func (h *Header) FSHeaderSize() int {
	return alignUp(rawHeaderSize+int(h.BitmapSize), DirEntrySize)
}

// AddrFromPage converts a page number into a byte address within the
// partition. Mirrors zealfs_v2.c's ADDR_FROM_PAGE macro.
func (h *Header) AddrFromPage(page uint16) int64 {
	return int64(page) * int64(h.PageSizeBytes())
}

// FatPageCount returns how many pages the FAT occupies for this header's
// page size.
func (h *Header) FatPageCount() int { return fatPageCount(h.PageSizeBytes()) }

// Entry is the decoded form of a 32-byte directory entry.
type Entry struct {
	Flags     uint8
	Name      [NameMaxLen]byte
	StartPage uint16
	Size      uint32
	Year      [2]byte
	Month     uint8
	Day       uint8
	Date      uint8
	Hours     uint8
	Minutes   uint8
	Seconds   uint8
	Reserved  uint8
}

// Occupied reports whether this entry slot holds a live file or directory.
func (e *Entry) Occupied() bool { return e.Flags&FlagOccupied != 0 }

// IsDir reports whether this entry is a directory. Only meaningful when
// Occupied is true - bit 0 is otherwise undefined, mirroring the ordering
// zealfs_v2.c always uses (check IS_OCCUPIED before IS_DIR).
func (e *Entry) IsDir() bool { return e.Occupied() && e.Flags&FlagIsDir != 0 }

// NameString returns the entry's name with trailing NUL/space padding
// trimmed.
func (e *Entry) NameString() string {
	n := len(e.Name)
	for n > 0 && (e.Name[n-1] == 0 || e.Name[n-1] == ' ') {
		n--
	}
	return string(e.Name[:n])
}

// ParseEntry decodes one 32-byte directory entry.
func ParseEntry(data []byte) (*Entry, error) {
	if len(data) != DirEntrySize {
		return nil, newErr("ParseEntry", KindInvalidArgument, fmt.Errorf("expected %d bytes, got %d", DirEntrySize, len(data)))
	}
	var e Entry
	e.Flags = data[0]
	copy(e.Name[:], data[1:17])
	e.StartPage = binary.LittleEndian.Uint16(data[17:19])
	e.Size = binary.LittleEndian.Uint32(data[19:23])
	e.Year[0], e.Year[1] = data[23], data[24]
	e.Month, e.Day, e.Date = data[25], data[26], data[27]
	e.Hours, e.Minutes, e.Seconds = data[28], data[29], data[30]
	e.Reserved = data[31]
	return &e, nil
}

// Encode serializes a directory entry back into 32 bytes.
func (e *Entry) Encode() []byte {
	buf := make([]byte, DirEntrySize)
	buf[0] = e.Flags
	copy(buf[1:17], e.Name[:])
	binary.LittleEndian.PutUint16(buf[17:19], e.StartPage)
	binary.LittleEndian.PutUint32(buf[19:23], e.Size)
	buf[23], buf[24] = e.Year[0], e.Year[1]
	buf[25], buf[26], buf[27] = e.Month, e.Day, e.Date
	buf[28], buf[29], buf[30] = e.Hours, e.Minutes, e.Seconds
	buf[31] = e.Reserved
	return buf
}

// EncodeName packs a path component into a NameMaxLen-byte, zero-padded
// array, or an error if it's too long. Matches zealfs_v2.c's bytewise name
// comparison semantics: no terminator is required, only a length cap.
func EncodeName(name string) ([NameMaxLen]byte, error) {
	var out [NameMaxLen]byte
	if len(name) > NameMaxLen {
		return out, newErr("EncodeName", KindNameTooLong, nil)
	}
	copy(out[:], name)
	return out, nil
}

// Format builds the initial 3-page image (page 0: header+bitmap followed by
// the empty root directory entries; then the FAT pages; then zero padding
// up to 3 pages) for a freshly formatted partition of the given size, matching
// original_source/include/zealfs_v2.h's zealfsv2_format.
func Format(partitionSize uint64) ([]byte, error) {
	pageSize, code := PageSizeForPartition(partitionSize)
	fatPages := fatPageCount(pageSize)

	bitmapSize := uint16(partitionSize / uint64(pageSize) / 8)
	totalPages := partitionSize / uint64(pageSize)
	if totalPages < uint64(1+fatPages) {
		return nil, newErr("Format", KindInvalidArgument, fmt.Errorf("partition too small for page size %d", pageSize))
	}
	freePages := uint16(totalPages - 1 - uint64(fatPages))

	h := &Header{
		Magic:         Magic,
		Version:       Version,
		BitmapSize:    bitmapSize,
		FreePages:     freePages,
		PageSize:      code,
		Bitmap:        make([]byte, bitmapSize),
		pageSizeBytes: pageSize,
	}
	// Page 0 (header) and page 1 (first FAT page) are always occupied;
	// page 2 is occupied too when the FAT spans two pages.
	h.Bitmap[0] = 0b011
	if fatPages > 1 {
		h.Bitmap[0] |= 0b100
	}

	const formatPages = 3 // header+bitmap+root directory, FAT, padding

	out := make([]byte, 0, pageSize*formatPages)
	out = append(out, h.Encode()...)

	fat := make([]byte, pageSize*fatPages)
	out = append(out, fat...)

	if pad := pageSize*formatPages - len(out); pad > 0 {
		out = append(out, make([]byte, pad)...)
	}

	return out, nil
}
