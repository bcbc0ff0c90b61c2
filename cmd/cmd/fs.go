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
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zeal8bit/zealdisk/internal/disk"
	"github.com/zeal8bit/zealdisk/internal/fuse"
	"github.com/zeal8bit/zealdisk/internal/zealfs"
	"github.com/zeal8bit/zealdisk/pkg/util/format"
	hostio "github.com/zeal8bit/zealdisk/pkg/util/io"
)

func DefineFSCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fs",
		Short: "Work with files and directories inside a ZealFS v2 partition",
	}
	cmd.AddCommand(defineFSLsCommand())
	cmd.AddCommand(defineFSCatCommand())
	cmd.AddCommand(defineFSPutCommand())
	cmd.AddCommand(defineFSGetCommand())
	cmd.AddCommand(defineFSRmCommand())
	cmd.AddCommand(defineFSMkdirCommand())
	cmd.AddCommand(defineFSRmdirCommand())
	cmd.AddCommand(defineFSDfCommand())
	cmd.AddCommand(defineFSMountCommand())
	return cmd
}

// openContext opens device, windows it onto partition's byte range and
// returns a ready zealfs.Context plus the underlying device for the caller
// to close once done.
func openContext(device, partition string, readWrite bool) (*zealfs.Context, disk.BlockDevice, error) {
	slot, err := strconv.Atoi(partition)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid partition index %q: %w", partition, err)
	}

	dev, err := disk.OpenPartition(device, slot, readWrite)
	if err != nil {
		return nil, nil, err
	}

	ctx, err := zealfs.NewContext(dev)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return ctx, dev, nil
}

func defineFSLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "ls <device> <partition> <path>",
		Short:        "List a directory's contents",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFSLs,
	}
}

func runFSLs(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], false)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := ctx.Opendir(args[2])
	if err != nil {
		return err
	}
	entries, err := ctx.Readdir(h, 0)
	if err != nil {
		return err
	}

	for _, e := range entries {
		kind := "-"
		if e.IsDir() {
			kind = "d"
		}
		fmt.Printf("%s %8d  %s  %s\n", kind, e.Size, e.Timestamp().Format("2006-01-02 15:04:05"), e.NameString())
	}
	return nil
}

func defineFSCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "cat <device> <partition> <path>",
		Short:        "Print a file's contents to stdout",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFSCat,
	}
}

func runFSCat(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], false)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := ctx.Open(args[2])
	if err != nil {
		return err
	}
	return streamOut(ctx, h, os.Stdout)
}

func defineFSGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "get <device> <partition> <zealpath> <hostfile>",
		Short:        "Copy a file out of the partition onto the host filesystem",
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE:         runFSGet,
	}
}

func runFSGet(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], false)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := ctx.Open(args[2])
	if err != nil {
		return err
	}

	r := &contextReader{ctx: ctx, h: h}
	if err := hostio.CopyFile(args[3], r); err != nil {
		return err
	}
	fmt.Printf("Copied %s:%d:%s -> %s (%d bytes).\n", args[0], mustAtoi(args[1]), args[2], args[3], h.Entry.Size)
	return nil
}

func defineFSPutCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "put <device> <partition> <hostfile> <zealpath>",
		Short:        "Copy a file from the host filesystem into the partition",
		Args:         cobra.ExactArgs(4),
		SilenceUsage: true,
		RunE:         runFSPut,
	}
}

func runFSPut(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], true)
	if err != nil {
		return err
	}
	defer dev.Close()

	h, err := ctx.Create(args[3])
	if err != nil {
		return err
	}

	f, err := os.Open(args[2])
	if err != nil {
		return err
	}
	defer f.Close()

	const chunkSize = 16 * 1024
	buf := make([]byte, chunkSize)
	var offset int64
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := ctx.Write(h, buf[:n], offset); werr != nil {
				return werr
			}
			offset += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if err := ctx.Flush(h); err != nil {
		return err
	}
	fmt.Printf("Copied %s -> %s:%s:%s (%d bytes).\n", args[2], args[0], args[1], args[3], offset)
	return nil
}

func defineFSRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "rm <device> <partition> <path>",
		Short:        "Remove a file",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFSRm,
	}
}

func runFSRm(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], true)
	if err != nil {
		return err
	}
	defer dev.Close()
	return ctx.Unlink(args[2])
}

func defineFSMkdirCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "mkdir <device> <partition> <path>",
		Short:        "Create a directory",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFSMkdir,
	}
}

func runFSMkdir(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], true)
	if err != nil {
		return err
	}
	defer dev.Close()

	_, err = ctx.Mkdir(args[2])
	return err
}

func defineFSRmdirCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "rmdir <device> <partition> <path>",
		Short:        "Remove an empty directory",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFSRmdir,
	}
}

func runFSRmdir(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], true)
	if err != nil {
		return err
	}
	defer dev.Close()
	return ctx.Rmdir(args[2])
}

func defineFSDfCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "df <device> <partition>",
		Short:        "Report free and total space on a partition",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runFSDf,
	}
}

func runFSDf(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], false)
	if err != nil {
		return err
	}
	defer dev.Close()

	total, free := ctx.TotalSpace(), ctx.FreeSpace()
	fmt.Printf("%-10s %-10s %-10s\n", "Size", "Used", "Free")
	fmt.Printf("%-10s %-10s %-10s\n",
		format.Bytes(uint64(total)),
		format.Bytes(uint64(total-free)),
		format.Bytes(uint64(free)))
	return nil
}

func defineFSMountCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "mount <device> <partition> <mountpoint>",
		Short:        "Mount a partition read-only over FUSE (Linux only)",
		Args:         cobra.ExactArgs(3),
		SilenceUsage: true,
		RunE:         runFSMount,
	}
}

func runFSMount(cmd *cobra.Command, args []string) error {
	ctx, dev, err := openContext(args[0], args[1], false)
	if err != nil {
		return err
	}
	defer dev.Close()
	return fuse.Mount(args[2], ctx)
}

// contextReader adapts repeated zealfs.Context.Read calls into an
// io.Reader, for pkg/util/io.CopyFile's writer-side counterpart.
type contextReader struct {
	ctx    *zealfs.Context
	h      *zealfs.Handle
	offset int64
}

func (r *contextReader) Read(p []byte) (int, error) {
	n, err := r.ctx.Read(r.h, p, r.offset)
	if err != nil {
		return n, err
	}
	r.offset += int64(n)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func streamOut(ctx *zealfs.Context, h *zealfs.Handle, w io.Writer) error {
	r := &contextReader{ctx: ctx, h: h}
	_, err := io.Copy(w, r)
	return err
}

func mustAtoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
