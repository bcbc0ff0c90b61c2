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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zeal8bit/zealdisk/internal/disk"
	"github.com/zeal8bit/zealdisk/internal/zealfs"
	"github.com/zeal8bit/zealdisk/pkg/pbar"
	"github.com/zeal8bit/zealdisk/pkg/util/format"
)

func DefinePartitionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Allocate, format, delete and commit staged partition changes",
	}
	cmd.AddCommand(definePartitionAllocCommand())
	cmd.AddCommand(definePartitionFormatCommand())
	cmd.AddCommand(definePartitionDeleteCommand())
	cmd.AddCommand(definePartitionCommitCommand())
	cmd.AddCommand(definePartitionRevertCommand())
	return cmd
}

func definePartitionAllocCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "alloc <device>",
		Short:        "Allocate a new partition in the largest free gap and write it to disk",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runPartitionAlloc,
	}
	cmd.Flags().Int("size-index", -1, "index into the fixed partition size table (omit it to list the valid sizes)")
	cmd.Flags().String("align", "512", "sector alignment for the new partition's start LBA, e.g. 512 or 1Mi")
	return cmd
}

func runPartitionAlloc(cmd *cobra.Command, args []string) error {
	sizeIndex, _ := cmd.Flags().GetInt("size-index")
	if sizeIndex < 0 {
		return fmt.Errorf("--size-index is required; valid sizes: %v", disk.PartitionSizeList())
	}
	alignStr, _ := cmd.Flags().GetString("align")
	alignBytes, err := format.ParseBytes(alignStr)
	if err != nil {
		return fmt.Errorf("invalid --align value %q: %w", alignStr, err)
	}
	alignSectors := uint32(alignBytes / disk.SectorSize)
	if alignSectors == 0 {
		alignSectors = 1
	}

	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}

	dev, err := disk.Open(args[0], false)
	if err != nil {
		return err
	}
	totalSectors := uint32(dev.Size() / disk.SectorSize)
	dev.Close()

	slot, err := st.AllocatePartition(sizeIndex, alignSectors, disk.ZealFSPartitionType, totalSectors)
	if err != nil {
		return err
	}

	if err := commitStaging(st); err != nil {
		return err
	}
	fmt.Printf("Allocated partition %d on %s.\n", slot, args[0])
	return nil
}

func definePartitionFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "format <device> <slot>",
		Short:        "Format a partition slot as ZealFS v2 and write it to disk",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runPartitionFormat,
	}
}

func runPartitionFormat(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid partition slot %q: %w", args[1], err)
	}

	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}

	if err := st.FormatPartition(slot, zealfs.Format); err != nil {
		return err
	}

	if err := commitStaging(st); err != nil {
		return err
	}
	fmt.Printf("Formatted partition %d on %s as ZealFS v2.\n", slot, args[0])
	return nil
}

func definePartitionDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "delete <device> <slot>",
		Short:        "Remove a partition slot and write the change to disk",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         runPartitionDelete,
	}
}

func runPartitionDelete(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid partition slot %q: %w", args[1], err)
	}

	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}

	if err := st.DeletePartition(slot); err != nil {
		return err
	}

	if err := commitStaging(st); err != nil {
		return err
	}
	fmt.Printf("Deleted partition %d on %s.\n", slot, args[0])
	return nil
}

func definePartitionCommitCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "commit <device>",
		Short:        "Write staged partition table and format changes to the disk",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runPartitionCommit,
	}
}

func runPartitionCommit(cmd *cobra.Command, args []string) error {
	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}
	return commitStaging(st)
}

func definePartitionRevertCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "revert <device>",
		Short:        "Discard staged, uncommitted partition changes",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runPartitionRevert,
	}
}

func runPartitionRevert(cmd *cobra.Command, args []string) error {
	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}
	st.Revert()
	fmt.Printf("Reverted staged changes on %s.\n", args[0])
	return nil
}

// commitStaging writes st's staged changes, rendering a progress bar sized
// to the total bytes of pending format blobs.
func commitStaging(st *disk.Staging) error {
	if !st.Dirty() {
		fmt.Println("Nothing staged.")
		return nil
	}

	var totalBytes int64
	for _, p := range st.Staged.Partitions {
		totalBytes += int64(len(p.FormatBytes))
	}

	var bar *pbar.ProgressBarState
	if totalBytes > 0 {
		bar = pbar.NewProgressBarState(totalBytes)
	}

	if err := st.Commit(bar); err != nil {
		return err
	}
	if bar != nil {
		bar.Render(true)
		bar.Finish()
	}
	return nil
}
