package main

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flexheap/arena"
	"github.com/joshuapare/flexheap/heap"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Create an empty heap file",
		Long: `The create command writes a new heap file holding an empty arena of
--granularity bytes. An existing file is truncated.

Example:
  heapctl create strings.fhp
  heapctl create strings.fhp --granularity 65536 --sizeclass strings`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(args)
		},
	}
	return cmd
}

func runCreate(args []string) error {
	path := args[0]

	f, err := arena.Create(path, 0)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	h := heap.New(f, heap.ExitSink{}, heapSettings())
	if err := h.Initialise(); err != nil {
		_ = f.Close()
		return err
	}
	capacity := h.Capacity()
	if err := h.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if jsonOut {
		return printJSON(map[string]interface{}{"file": path, "capacity": capacity})
	}
	printInfo("Created %s (%s)\n", path, humanize.IBytes(uint64(capacity)))
	return nil
}
