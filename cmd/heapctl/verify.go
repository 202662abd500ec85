package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newVerifyCmd())
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a heap file for corruption",
		Long: `The verify command walks every cell of a heap file and checks it against
the descriptor and the rebuilt free lists. The file is mapped read-only and
never modified.

Example:
  heapctl verify strings.fhp`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(args)
		},
	}
	return cmd
}

func runVerify(args []string) error {
	r, err := inspectHeap(args[0])
	if err != nil {
		return err
	}

	verr := r.Err
	if jsonOut {
		result := map[string]interface{}{"file": args[0], "valid": verr == nil}
		if verr != nil {
			result["error"] = verr.Error()
		}
		if err := printJSON(result); err != nil {
			return err
		}
		return verr
	}
	if verr != nil {
		return verr
	}
	printInfo("✓ %s: %d live cells, structure valid\n", args[0], r.Usage.LiveCount)
	return nil
}
