package main

import (
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Report the layout of a heap file",
		Long: `The info command maps a heap file read-only and displays its capacity, the
allocator extent and high-water mark, and live and free cell counts.

Example:
  heapctl info strings.fhp
  heapctl info strings.fhp --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) error {
	r, err := inspectHeap(args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(r)
	}

	u := r.Usage
	printInfo("\nHeap Information:\n")
	printInfo("  File:       %s\n", args[0])
	printInfo("  Capacity:   %s\n", humanize.IBytes(uint64(r.Capacity)))
	printInfo("  Extent:     %s\n", humanize.IBytes(uint64(u.Extent)))
	printInfo("  High-water: %s\n", humanize.IBytes(uint64(u.HWM)))
	printInfo("  Floor:      %s\n", humanize.IBytes(uint64(u.Floor)))
	printInfo("  Virgin:     %s\n", humanize.IBytes(uint64(u.Virgin())))
	printInfo("  Live:       %s cells, %s\n", humanize.Comma(int64(u.LiveCount)), humanize.IBytes(uint64(u.LiveBytes)))
	printInfo("  Free:       %s cells, %s\n", humanize.Comma(int64(u.FreeCells)), humanize.IBytes(uint64(u.FreeBytes)))
	if used := u.HWM; used > 0 {
		printVerbose("  Occupancy:  %.1f%%\n", 100*float64(u.LiveBytes)/float64(used))
	}
	if r.Err != nil {
		printInfo("  Integrity:  %v\n", r.Err)
	}
	printInfo("\n")
	return nil
}
