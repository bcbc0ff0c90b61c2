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

	"github.com/spf13/cobra"

	"github.com/zeal8bit/zealdisk/internal/disk"
)

func DefineMBRCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mbr",
		Short: "Inspect or initialize a disk's Master Boot Record",
	}
	cmd.AddCommand(defineMBRShowCommand())
	cmd.AddCommand(defineMBRCreateCommand())
	return cmd
}

func defineMBRShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "show <device>",
		Short:        "Print a disk's MBR and partition table",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runMBRShow,
	}
}

func runMBRShow(cmd *cobra.Command, args []string) error {
	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}

	if !st.HasMBR {
		if st.Committed.Partitions[0].Active() {
			fmt.Printf("%s has no MBR; the whole disk is formatted as a single ZealFS v2 partition.\n", args[0])
		} else {
			fmt.Printf("%s has no MBR.\n", args[0])
		}
		return nil
	}

	mbr, err := disk.ParseMBR(st.Committed.MBR[:])
	if err != nil {
		return err
	}
	fmt.Println(mbr.String())

	dev, err := disk.Open(args[0], false)
	if err != nil {
		return err
	}
	totalSectors := uint32(dev.Size() / disk.SectorSize)
	dev.Close()

	start, free := disk.LargestFreeGap(partitionEntries(st), totalSectors)
	fmt.Printf("\nLargest free gap: %d sectors starting at LBA %d\n", free, start)
	return nil
}

func defineMBRCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "create <device>",
		Short:        "Write a new, empty MBR to a disk that has none",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runMBRCreate,
	}
}

func runMBRCreate(cmd *cobra.Command, args []string) error {
	st, err := disk.Load(args[0], false)
	if err != nil {
		return err
	}
	if st.HasMBR {
		return fmt.Errorf("%s already has an MBR", args[0])
	}
	if err := st.CreateMBR(); err != nil {
		return err
	}
	if err := st.Commit(nil); err != nil {
		return err
	}
	fmt.Printf("Created a new MBR on %s.\n", args[0])
	return nil
}

func partitionEntries(st *disk.Staging) [4]disk.MBRPartitionEntry {
	var out [4]disk.MBRPartitionEntry
	for i, p := range st.Committed.Partitions {
		out[i] = p.MBRPartitionEntry
	}
	return out
}
