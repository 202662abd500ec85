package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strdupFree bool

func init() {
	cmd := newStrdupCmd()
	cmd.Flags().BoolVar(&strdupFree, "free", false, "Free each copy again after printing it")
	rootCmd.AddCommand(cmd)
}

func newStrdupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strdup <file> <text>...",
		Short: "Store strings in a heap file",
		Long: `The strdup command copies each argument into the heap file as a
NUL-terminated string and prints the offset it was stored at.

Example:
  heapctl strdup strings.fhp alpha beta gamma`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrdup(args)
		},
	}
	return cmd
}

type strdupResult struct {
	Text   string `json:"text"`
	Offset uint32 `json:"offset"`
	Size   int    `json:"size"`
}

func runStrdup(args []string) error {
	h, err := openHeap(args[0])
	if err != nil {
		return err
	}

	results := make([]strdupResult, 0, len(args)-1)
	for _, text := range args[1:] {
		p, err := h.Strdup(text)
		if err != nil {
			_ = h.Close()
			return fmt.Errorf("strdup %q: %w", text, err)
		}
		results = append(results, strdupResult{Text: h.String(p), Offset: uint32(p), Size: h.SizeOf(p)})
		if strdupFree {
			h.Free(p)
		}
	}
	if err := h.Close(); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(results)
	}
	for _, r := range results {
		printInfo("0x%08X  %4d  %s\n", r.Offset, r.Size, r.Text)
	}
	printVerbose("%d strings stored\n", len(results))
	return nil
}
