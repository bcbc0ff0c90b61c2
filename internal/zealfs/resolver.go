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

import "strings"

// browseResult is what browsePath found (or didn't) while walking a path's
// components across directory pages. Mirrors zealfs_v2.c's browse_out_t.
type browseResult struct {
	lastDirPage   uint16
	freeEntryAddr int64
	entryAddr     int64
	entry         Entry
	found         bool
}

// dirMaxEntriesFor returns how many entries fit in one page of a directory,
// the root directory having less room since its first page is shared with
// the header and bitmap.
func (c *Context) dirMaxEntriesFor(root bool) int {
	if root {
		return (c.header.PageSizeBytes() - c.header.FSHeaderSize()) / DirEntrySize
	}
	return c.header.PageSizeBytes() / DirEntrySize
}

func (c *Context) readEntries(addr int64, count int) ([]*Entry, error) {
	buf := make([]byte, count*DirEntrySize)
	if _, err := c.dev.ReadAt(buf, addr); err != nil {
		return nil, newErr("readEntries", KindIoError, err)
	}
	out := make([]*Entry, count)
	for i := 0; i < count; i++ {
		e, err := ParseEntry(buf[i*DirEntrySize : (i+1)*DirEntrySize])
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// browsePath walks path (relative, no leading slash) starting from the
// directory whose entries begin at entriesAddr, descending into
// subdirectories as '/' separators are found. Mirrors zealfs_v2.c's
// browse_path, including its single free-slot bookkeeping (only the last
// path component's directory records a free entry address, for callers
// that want to create a new entry there).
func (c *Context) browsePath(path string, entriesAddr int64, root bool) (*browseResult, error) {
	maxEntries := c.dirMaxEntriesFor(root)
	pageSize := int64(c.header.PageSizeBytes())
	currentPage := uint16(entriesAddr / pageSize)

	res := &browseResult{lastDirPage: currentPage}

	slashIdx := strings.IndexByte(path, '/')
	var name string
	if slashIdx >= 0 {
		name = path[:slashIdx]
	} else {
		name = path
	}
	wantName, err := EncodeName(name)
	if err != nil {
		return nil, err
	}

	for {
		entries, err := c.readEntries(entriesAddr, maxEntries)
		if err != nil {
			return nil, err
		}

		for i, e := range entries {
			if !e.Occupied() {
				if slashIdx < 0 && res.freeEntryAddr == 0 {
					res.freeEntryAddr = entriesAddr + int64(i)*DirEntrySize
				}
				continue
			}
			if e.Name == wantName {
				if slashIdx < 0 {
					res.entryAddr = entriesAddr + int64(i)*DirEntrySize
					res.entry = *e
					res.found = true
					return res, nil
				}
				return c.browsePath(path[slashIdx+1:], c.header.AddrFromPage(e.StartPage), false)
			}
		}

		next := c.nextFromFAT(currentPage)
		if next == 0 {
			return res, nil
		}
		currentPage = next
		res.lastDirPage = currentPage
		maxEntries = c.dirMaxEntriesFor(false)
		entriesAddr = c.header.AddrFromPage(currentPage)
	}
}
