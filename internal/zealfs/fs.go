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
	"io"
	"strings"
	"time"

	"github.com/zeal8bit/zealdisk/pkg/table"
)

// device is the minimal random-access surface Context needs from a
// partition's backing storage. disk.BlockDevice satisfies this without
// either package importing the other.
type device interface {
	io.ReaderAt
	io.WriterAt
}

// Handle is an open file or directory, bundling its directory entry with
// the on-disk address of that entry (for files) or the address its entries
// begin at (for directories). Mirrors zealfs_v2.h's zealfs_fd_t, used for
// both opendir and open in the original too.
type Handle struct {
	Entry     Entry
	EntryAddr int64
}

// pathEntry is what the path resolution cache stores per resolved path.
type pathEntry struct {
	Entry Entry
	Addr  int64
}

// Context is one mounted ZealFS v2 partition: the backing device plus the
// cached header/bitmap and FAT, matching zealfs_context_t's read/write
// callback + cache design collapsed into direct device access. pathCache
// memoizes resolved (non-mutating) path lookups - a FUSE mount re-resolves
// the same directories on every readdir/getattr round trip, which
// browsePath would otherwise re-walk page by page every time.
type Context struct {
	dev       device
	header    *Header
	fat       []uint16
	pathCache *table.PrefixTable[pathEntry]
}

// resolve looks path up in the path cache, falling back to a full
// browsePath walk on a miss and caching the result when found. Mutating
// operations must call invalidateCache afterwards.
func (c *Context) resolve(path string) (*browseResult, error) {
	key := []byte(path)
	if cached, ok := c.pathCache.Get(key); ok {
		return &browseResult{entry: cached.Entry, entryAddr: cached.Addr, found: true}, nil
	}
	res, err := c.browsePath(strings.TrimPrefix(path, "/"), c.rootDirAddr(), true)
	if err != nil {
		return nil, err
	}
	if res.found {
		c.pathCache.Insert(key, pathEntry{Entry: res.entry, Addr: res.entryAddr})
	}
	return res, nil
}

// invalidateCache drops every cached path resolution. Called after any
// operation that creates, removes, or renames a directory entry.
func (c *Context) invalidateCache() {
	c.pathCache = table.New[pathEntry]()
}

// NewContext reads a partition's header and FAT from dev and returns a
// ready-to-use Context. Mirrors zealfs_v2.c's check_header, performed once
// up front instead of lazily on first use.
func NewContext(dev device) (*Context, error) {
	var probe [rawHeaderSize]byte
	if _, err := dev.ReadAt(probe[:], 0); err != nil {
		return nil, newErr("NewContext", KindIoError, err)
	}
	pageSize, ok := pageSizesByCode[probe[6]]
	if probe[0] != Magic || !ok {
		return nil, newErr("NewContext", KindInvalidArgument, fmt.Errorf("not a zealfs v2 partition"))
	}

	page0 := make([]byte, pageSize)
	if _, err := dev.ReadAt(page0, 0); err != nil {
		return nil, newErr("NewContext", KindIoError, err)
	}
	header, err := ParseHeader(page0)
	if err != nil {
		return nil, err
	}

	fatPages := header.FatPageCount()
	fatBytes := make([]byte, pageSize*fatPages)
	if _, err := dev.ReadAt(fatBytes, int64(pageSize)); err != nil {
		return nil, newErr("NewContext", KindIoError, err)
	}
	fat := make([]uint16, len(fatBytes)/2)
	for i := range fat {
		fat[i] = binary.LittleEndian.Uint16(fatBytes[i*2:])
	}

	return &Context{dev: dev, header: header, fat: fat, pathCache: table.New[pathEntry]()}, nil
}

func (c *Context) rootDirAddr() int64 { return int64(c.header.FSHeaderSize()) }

func (c *Context) nextFromFAT(page uint16) uint16 { return c.fat[page] }

func (c *Context) setNextInFAT(page, next uint16) { c.fat[page] = next }

func (c *Context) allocatePage() (uint16, error) {
	for i, b := range c.header.Bitmap {
		if b == 0xff {
			continue
		}
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) == 0 {
				c.header.Bitmap[i] |= 1 << uint(bit)
				c.header.FreePages--
				return uint16(i*8 + bit), nil
			}
		}
	}
	return 0, newErr("allocatePage", KindNoSpace, nil)
}

func (c *Context) freePage(page uint16) {
	c.header.SetPageFree(int(page))
	c.header.FreePages++
}

func (c *Context) allocateNext(current uint16) (uint16, error) {
	next, err := c.allocatePage()
	if err != nil {
		return 0, err
	}
	c.setNextInFAT(current, next)
	return next, nil
}

// writeHeaderAndFAT persists the header, bitmap and FAT cache back to disk.
// Mirrors the trailing writes every mutating zealfs_v2.c call performs.
func (c *Context) writeHeaderAndFAT() error {
	hdrBuf := c.header.Encode()[:c.header.FSHeaderSize()]
	if _, err := c.dev.WriteAt(hdrBuf, 0); err != nil {
		return newErr("writeHeaderAndFAT", KindIoError, err)
	}
	fatBuf := make([]byte, len(c.fat)*2)
	for i, v := range c.fat {
		binary.LittleEndian.PutUint16(fatBuf[i*2:], v)
	}
	if _, err := c.dev.WriteAt(fatBuf, c.header.AddrFromPage(1)); err != nil {
		return newErr("writeHeaderAndFAT", KindIoError, err)
	}
	return nil
}

// FreeSpace returns the number of free bytes left in the partition.
// Mirrors zealfs_v2.c's zealfs_free_space.
func (c *Context) FreeSpace() int64 {
	return int64(c.header.FreePages) * int64(c.header.PageSizeBytes())
}

// TotalSpace returns the partition's total usable size in bytes (all pages,
// including the header and FAT pages), for `fs df`-style reporting.
func (c *Context) TotalSpace() int64 {
	return int64(c.header.TotalPages()) * int64(c.header.PageSizeBytes())
}

// Opendir resolves path to a directory handle. Mirrors zealfs_v2.c's
// zealfs_opendir.
func (c *Context) Opendir(path string) (*Handle, error) {
	if path == "/" {
		return &Handle{EntryAddr: c.rootDirAddr()}, nil
	}
	res, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if !res.found {
		return nil, newErr("Opendir", KindNotFound, nil)
	}
	if !res.entry.IsDir() {
		return nil, newErr("Opendir", KindNotDirectory, nil)
	}
	return &Handle{Entry: res.entry, EntryAddr: c.header.AddrFromPage(res.entry.StartPage)}, nil
}

// Readdir returns every occupied entry in the directory h refers to, up to
// max entries (max <= 0 means unbounded). Mirrors zealfs_v2.c's
// zealfs_readdir.
func (c *Context) Readdir(h *Handle, max int) ([]*Entry, error) {
	isRoot := h.EntryAddr == c.rootDirAddr()
	maxEntries := c.dirMaxEntriesFor(isRoot)
	currentPage := uint16(h.EntryAddr / int64(c.header.PageSizeBytes()))
	addr := h.EntryAddr

	var out []*Entry
	for {
		entries, err := c.readEntries(addr, maxEntries)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.Occupied() {
				continue
			}
			out = append(out, e)
			if max > 0 && len(out) >= max {
				return out, nil
			}
		}

		maxEntries = c.dirMaxEntriesFor(false)
		next := c.nextFromFAT(currentPage)
		if next == 0 {
			break
		}
		currentPage = next
		addr = c.header.AddrFromPage(currentPage)
	}
	return out, nil
}

// Open resolves path to a file handle. Mirrors zealfs_v2.c's zealfs_open.
func (c *Context) Open(path string) (*Handle, error) {
	if path == "/" {
		return nil, newErr("Open", KindIsDirectory, nil)
	}
	res, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if !res.found {
		return nil, newErr("Open", KindNotFound, nil)
	}
	if res.entry.IsDir() {
		return nil, newErr("Open", KindIsDirectory, nil)
	}
	return &Handle{Entry: res.entry, EntryAddr: res.entryAddr}, nil
}

// Read fills buf with up to len(buf) bytes from h starting at offset,
// truncated at the file's recorded size. Mirrors zealfs_v2.c's zealfs_read.
func (c *Context) Read(h *Handle, buf []byte, offset int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if offset > int64(h.Entry.Size) {
		return 0, newErr("Read", KindInvalidArgument, nil)
	}
	pageSize := int64(c.header.PageSizeBytes())

	size := int64(len(buf))
	if remaining := int64(h.Entry.Size) - offset; remaining < size {
		size = remaining
	}
	total := size

	jumpPages := offset / pageSize
	offsetInPage := offset % pageSize

	currentPage := h.Entry.StartPage
	for jumpPages > 0 {
		currentPage = c.nextFromFAT(currentPage)
		jumpPages--
	}

	var written int64
	for size > 0 {
		count := pageSize - offsetInPage
		if count > size {
			count = size
		}
		pageAddr := c.header.AddrFromPage(currentPage)
		if _, err := c.dev.ReadAt(buf[written:written+count], pageAddr+offsetInPage); err != nil {
			return 0, newErr("Read", KindIoError, err)
		}
		written += count
		size -= count
		if size > 0 {
			currentPage = c.nextFromFAT(currentPage)
		}
		offsetInPage = 0
	}
	return int(total), nil
}

// Write writes buf into h at offset, allocating new pages as needed, and
// updates h.Entry.Size in memory - callers must call Flush to persist the
// entry, header and FAT. Mirrors zealfs_v2.c's zealfs_write.
func (c *Context) Write(h *Handle, buf []byte, offset int64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	pageSize := int64(c.header.PageSizeBytes())
	jumpPages := offset / pageSize
	offsetInPage := offset % pageSize
	remainingInPage := pageSize - offsetInPage

	total := int64(len(buf))
	if c.FreeSpace()+remainingInPage < total {
		return 0, newErr("Write", KindNoSpace, nil)
	}

	currentPage := h.Entry.StartPage
	for jumpPages > 0 {
		next := c.nextFromFAT(currentPage)
		if next == 0 {
			if jumpPages != 1 {
				return 0, newErr("Write", KindIoError, fmt.Errorf("corrupt page chain"))
			}
			var err error
			next, err = c.allocateNext(currentPage)
			if err != nil {
				return 0, err
			}
		}
		currentPage = next
		jumpPages--
	}

	size := total
	var written int64
	for size > 0 {
		pageAddr := c.header.AddrFromPage(currentPage)
		count := pageSize - offsetInPage
		if count > size {
			count = size
		}
		if _, err := c.dev.WriteAt(buf[written:written+count], pageAddr+offsetInPage); err != nil {
			return int(written), newErr("Write", KindIoError, err)
		}
		h.Entry.Size += uint32(count)
		written += count
		size -= count

		if next := c.nextFromFAT(currentPage); next != 0 {
			currentPage = next
		} else if size > 0 {
			var err error
			currentPage, err = c.allocateNext(currentPage)
			if err != nil {
				return int(written), err
			}
		}
		offsetInPage = 0
	}
	return int(written), nil
}

// Flush persists h's directory entry, then the header/bitmap/FAT, to disk.
// Must be called after Write. Mirrors zealfs_v2.c's zealfs_flush.
func (c *Context) Flush(h *Handle) error {
	if _, err := c.dev.WriteAt(h.Entry.Encode(), h.EntryAddr); err != nil {
		return newErr("Flush", KindIoError, err)
	}
	c.invalidateCache()
	return c.writeHeaderAndFAT()
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// createBoth implements Create and Mkdir, allocating a directory-entry slot
// (and, if the containing directory is full, a new page for it) plus a
// first data page for the new entry. Mirrors zealfs_v2.c's
// zealfs_create_both.
func (c *Context) createBoth(path string, isDir bool) (*Handle, error) {
	trimmed := strings.TrimPrefix(path, "/")
	res, err := c.browsePath(trimmed, c.rootDirAddr(), true)
	if err != nil {
		return nil, err
	}
	if res.found {
		return nil, newErr("create", KindAlreadyExists, nil)
	}

	headerBackup := *c.header
	bitmapBackup := append([]byte(nil), c.header.Bitmap...)
	restore := func() {
		*c.header = headerBackup
		c.header.Bitmap = bitmapBackup
	}

	name := baseName(path)
	encName, err := EncodeName(name)
	if err != nil {
		return nil, err
	}

	freeEntryAddr := res.freeEntryAddr
	var newPageDir uint16
	if freeEntryAddr == 0 {
		newPageDir, err = c.allocatePage()
		if err != nil {
			return nil, err
		}
		c.setNextInFAT(newPageDir, 0)
		c.setNextInFAT(res.lastDirPage, newPageDir)
		freeEntryAddr = c.header.AddrFromPage(newPageDir)
	}

	newPage, err := c.allocatePage()
	if err != nil {
		restore()
		return nil, newErr("create", KindNoSpace, nil)
	}
	c.setNextInFAT(newPage, 0)

	var entry Entry
	entry.Flags = FlagOccupied
	if isDir {
		entry.Flags |= FlagIsDir
		entry.Size = uint32(c.header.PageSizeBytes())
	}
	entry.Name = encName
	entry.StartPage = newPage
	entry.SetTimestamp(time.Now())

	empty := make([]byte, c.header.PageSizeBytes())
	if _, err := c.dev.WriteAt(empty, c.header.AddrFromPage(newPage)); err != nil {
		restore()
		return nil, newErr("create", KindIoError, err)
	}
	if newPageDir != 0 {
		if _, err := c.dev.WriteAt(empty, c.header.AddrFromPage(newPageDir)); err != nil {
			restore()
			return nil, newErr("create", KindIoError, err)
		}
	}
	if _, err := c.dev.WriteAt(entry.Encode(), freeEntryAddr); err != nil {
		restore()
		return nil, newErr("create", KindIoError, err)
	}
	if err := c.writeHeaderAndFAT(); err != nil {
		restore()
		return nil, err
	}

	c.invalidateCache()
	return &Handle{Entry: entry, EntryAddr: freeEntryAddr}, nil
}

// Create makes an empty file at path. Mirrors zealfs_v2.c's zealfs_create.
func (c *Context) Create(path string) (*Handle, error) { return c.createBoth(path, false) }

// Mkdir makes an empty directory at path. Mirrors zealfs_v2.c's
// zealfs_mkdir.
func (c *Context) Mkdir(path string) (*Handle, error) { return c.createBoth(path, true) }

// Unlink removes a file (not a directory) from the filesystem. Mirrors
// zealfs_v2.c's zealfs_unlink.
func (c *Context) Unlink(path string) error {
	res, err := c.resolve(path)
	if err != nil {
		return err
	}
	if !res.found {
		return newErr("Unlink", KindNotFound, nil)
	}
	if res.entry.IsDir() {
		return newErr("Unlink", KindIsDirectory, nil)
	}

	page := res.entry.StartPage
	for page != 0 {
		next := c.nextFromFAT(page)
		c.freePage(page)
		c.setNextInFAT(page, 0)
		page = next
	}

	var empty Entry
	if _, err := c.dev.WriteAt(empty.Encode(), res.entryAddr); err != nil {
		return newErr("Unlink", KindIoError, err)
	}
	c.invalidateCache()
	return c.writeHeaderAndFAT()
}

// Rmdir removes an empty directory. Mirrors zealfs_v2.c's zealfs_rmdir.
func (c *Context) Rmdir(path string) error {
	if path == "/" {
		return newErr("Rmdir", KindInvalidArgument, fmt.Errorf("cannot remove the root directory"))
	}
	res, err := c.resolve(path)
	if err != nil {
		return err
	}
	if !res.found {
		return newErr("Rmdir", KindNotFound, nil)
	}
	if !res.entry.IsDir() {
		return newErr("Rmdir", KindNotDirectory, nil)
	}

	maxEntries := c.dirMaxEntriesFor(false)
	currentPage := res.entry.StartPage
	for currentPage != 0 {
		entries, err := c.readEntries(c.header.AddrFromPage(currentPage), maxEntries)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Occupied() {
				return newErr("Rmdir", KindNotEmpty, nil)
			}
		}
		next := c.nextFromFAT(currentPage)
		c.freePage(currentPage)
		c.setNextInFAT(currentPage, 0)
		currentPage = next
	}

	var empty Entry
	if _, err := c.dev.WriteAt(empty.Encode(), res.entryAddr); err != nil {
		return newErr("Rmdir", KindIoError, err)
	}
	c.invalidateCache()
	return c.writeHeaderAndFAT()
}
