package main

import (
	"fmt"
	"os"

	"github.com/bnclabs/golog"
	s "github.com/bnclabs/gosettings"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flexheap/arena"
	"github.com/joshuapare/flexheap/heap"
	"github.com/joshuapare/flexheap/heap/alloc"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string

	// Heap settings
	granularity int64
	overhead    int64
	sizeclass   string
)

var jsonConfig = jsoniter.Config{
	SortMapKeys:   true,
	EscapeHTML:    false,
	CaseSensitive: true,
}.Froze()

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Create, inspect and exercise flexheap arenas",
	Long: `heapctl works with file-backed flexheap arenas: it can create them,
report their layout, check them for corruption, store strings in them and
run randomised allocation workloads against the allocator.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Enable library logging at this level (debug, info, warn, ...)")

	rootCmd.PersistentFlags().Int64Var(&granularity, "granularity", 1024, "Initial arena size and trim floor")
	rootCmd.PersistentFlags().Int64Var(&overhead, "overhead", 16, "Extra bytes requested on every growth")
	rootCmd.PersistentFlags().StringVar(&sizeclass, "sizeclass", alloc.DefaultConfig.Name,
		"Free-list layout: fine, balanced, coarse or strings")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() {
	if logLevel == "" {
		return
	}
	log.SetLogger(nil, map[string]interface{}{
		"log.level": logLevel,
		"log.file":  "",
	})
	arena.LogComponents("all")
	alloc.LogComponents("all")
	heap.LogComponents("all")
}

// heapSettings collects the heap settings flags.
func heapSettings() s.Settings {
	return s.Settings{
		"granularity": granularity,
		"overhead":    overhead,
		"sizeclass":   sizeclass,
	}
}

// inspectHeap examines a heap file through a read-only mapping.
func inspectHeap(path string) (heap.Report, error) {
	printVerbose("Inspecting heap: %s\n", path)
	r, err := heap.Inspect(path, heapSettings())
	if err != nil {
		return r, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return r, nil
}

// openHeap maps an existing heap file read-write.
func openHeap(path string) (*heap.Heap, error) {
	printVerbose("Opening heap: %s\n", path)
	f, err := arena.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	h, err := heap.Open(f, heap.ExitSink{}, heapSettings())
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return h, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := jsonConfig.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
