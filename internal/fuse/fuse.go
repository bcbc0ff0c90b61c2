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
package fuse

import (
	"context"
	"os"
	"syscall"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"

	"github.com/zeal8bit/zealdisk/internal/zealfs"
)

// RecoverFS mounts one ZealFS v2 partition read-only, walking its real
// directory tree instead of a flat file list.
type RecoverFS struct {
	ctx        *zealfs.Context
	mountpoint string
}

func (r *RecoverFS) Root() (fs.Node, error) {
	return &Dir{fs: r, path: "/"}, nil
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// Dir implements fs.Node and fs.HandleReadDirAller, backed by one ZealFS
// directory. Its entries are resolved on demand rather than cached, since a
// mounted image may be committed over from under the mount between calls.
type Dir struct {
	fs    *RecoverFS
	path  string
	entry zealfs.Entry
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	if d.path != "/" {
		a.Mtime = d.entry.Timestamp()
	}
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	childPath := joinPath(d.path, name)

	if h, err := d.fs.ctx.Opendir(childPath); err == nil {
		return &Dir{fs: d.fs, path: childPath, entry: h.Entry}, nil
	}

	h, err := d.fs.ctx.Open(childPath)
	if err != nil {
		return nil, toFuseErr(err)
	}
	return &File{fs: d.fs, path: childPath, entry: h.Entry}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	h, err := d.fs.ctx.Opendir(d.path)
	if err != nil {
		return nil, toFuseErr(err)
	}
	entries, err := d.fs.ctx.Readdir(h, 0)
	if err != nil {
		return nil, toFuseErr(err)
	}

	out := make([]fuse.Dirent, len(entries))
	for i, e := range entries {
		typ := fuse.DT_File
		if e.IsDir() {
			typ = fuse.DT_Dir
		}
		out[i] = fuse.Dirent{
			Inode: uint64(e.StartPage),
			Name:  e.NameString(),
			Type:  typ,
		}
	}
	return out, nil
}

// File implements fs.Node and fs.HandleReader, backed by one ZealFS file.
// Reads re-open the file by path rather than holding a live *zealfs.Handle,
// since bazil.org/fuse may keep a Node around across unrelated opens.
type File struct {
	fs    *RecoverFS
	path  string
	entry zealfs.Entry
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.entry.Size)
	a.Mtime = f.entry.Timestamp()
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	h, err := f.fs.ctx.Open(f.path)
	if err != nil {
		return toFuseErr(err)
	}

	buf := make([]byte, req.Size)
	n, err := f.fs.ctx.Read(h, buf, req.Offset)
	if err != nil {
		return toFuseErr(err)
	}
	resp.Data = buf[:n]
	return nil
}

// toFuseErr maps a zealfs error onto the closest bazil.org/fuse errno.
func toFuseErr(err error) error {
	switch zealfs.KindOf(err) {
	case zealfs.KindNotFound:
		return fuse.ENOENT
	case zealfs.KindNotDirectory, zealfs.KindIsDirectory, zealfs.KindInvalidArgument, zealfs.KindNameTooLong:
		return fuse.Errno(syscall.EINVAL)
	default:
		return fuse.EIO
	}
}
