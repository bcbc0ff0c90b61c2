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

func DefineDisksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disks",
		Short: "Inspect locally attached disks and disk images",
	}
	cmd.AddCommand(defineDisksListCommand())
	return cmd
}

func defineDisksListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List the disks and images zealdisk can see",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runDisksList,
	}
	cmd.Flags().Bool("refresh", false, "probe through Refresh instead of Enumerate (the same result for a one-shot run)")
	return cmd
}

func runDisksList(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")

	var disks []*disk.Staging
	var err error
	if refresh {
		// A one-shot CLI invocation never has a previously tracked list to
		// preserve loaded image files against or to check for staged
		// changes, so Refresh(nil) returns the same list a plain Enumerate
		// does.
		disks, err = disk.Refresh(nil)
	} else {
		disks, err = disk.Enumerate()
	}
	if err != nil {
		return err
	}

	if len(disks) == 0 {
		fmt.Println("No disks found.")
		return nil
	}

	fmt.Printf("%-24s %-8s %-8s %s\n", "NAME", "MBR", "STATE", "PARTITIONS")
	for _, st := range disks {
		hasMBR := "no"
		if st.HasMBR {
			hasMBR = "yes"
		}

		active := 0
		for _, p := range st.Committed.Partitions {
			if p.Active() {
				active++
			}
		}

		fmt.Printf("%-24s %-8s %-8s %d\n", st.Name(), hasMBR, st.State.String(), active)
	}
	return nil
}
