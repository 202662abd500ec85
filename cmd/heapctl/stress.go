package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	sigar "github.com/cloudfoundry/gosigar"
	humanize "github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joshuapare/flexheap/arena"
	"github.com/joshuapare/flexheap/heap"
)

var (
	stressOps     int
	stressMaxSize string
	stressLimit   string
	stressSeed    int64
	stressFile    string
	stressCheck   int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 100000, "Number of operations to run")
	cmd.Flags().StringVar(&stressMaxSize, "max-size", "4KiB", "Largest allocation request")
	cmd.Flags().StringVar(&stressLimit, "limit", "0",
		`Arena growth limit ("0" for none, a size such as "64MiB", or "auto" for a quarter of free RAM)`)
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&stressFile, "file", "", "Run against a new heap file instead of memory")
	cmd.Flags().IntVar(&stressCheck, "check-every", 1000, "Verify the heap every N operations (0 disables)")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a randomised allocation workload",
		Long: `The stress command runs a random mix of alloc, free, realloc and strdup
calls against a fresh heap, checking contents and structure as it goes.
A growth limit turns refused extends into recoverable out-of-memory results,
which are counted rather than treated as failures.

Example:
  heapctl stress --ops 1000000
  heapctl stress --limit 8MiB --max-size 64KiB
  heapctl stress --limit auto --file /tmp/stress.fhp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

type stressResult struct {
	Ops         int        `json:"ops"`
	OutOfMemory int        `json:"out_of_memory"`
	PeakLive    int        `json:"peak_live"`
	PeakCap     int        `json:"peak_capacity"`
	Final       heap.Stats `json:"final"`
}

func runStress() error {
	maxSize, err := humanize.ParseBytes(stressMaxSize)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}
	limit, err := parseLimit(stressLimit)
	if err != nil {
		return err
	}

	h, err := newStressHeap(limit)
	if err != nil {
		return err
	}
	defer h.Close()
	printVerbose("Limit: %s, max request: %s\n", humanize.IBytes(uint64(limit)), humanize.IBytes(maxSize))

	rng := rand.New(rand.NewSource(stressSeed))
	live := make(map[heap.Ptr]byte)
	var res stressResult

	var out io.Writer = os.Stderr
	if quiet || jsonOut {
		out = io.Discard
	}
	bar := progressbar.NewOptions(stressOps,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("stress"),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	for i := range stressOps {
		if err := stressStep(h, rng, live, int(maxSize), byte(i), &res); err != nil {
			return fmt.Errorf("op %d: %w", i, err)
		}
		if stressCheck > 0 && (i+1)%stressCheck == 0 {
			if err := h.Verify(); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
		}
		res.PeakLive = max(res.PeakLive, len(live))
		res.PeakCap = max(res.PeakCap, h.Capacity())
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	for p, seed := range live {
		if !holds(h, p, seed) {
			return fmt.Errorf("payload at 0x%X corrupted", uint32(p))
		}
		h.Free(p)
	}
	if err := h.Verify(); err != nil {
		return err
	}
	res.Ops = stressOps
	res.Final = h.Stats()

	if jsonOut {
		return printJSON(res)
	}
	printInfo("\n%s ops, %s out-of-memory results\n", humanize.Comma(int64(res.Ops)), humanize.Comma(int64(res.OutOfMemory)))
	printInfo("peak: %s live allocations, %s capacity\n",
		humanize.Comma(int64(res.PeakLive)), humanize.IBytes(uint64(res.PeakCap)))
	printInfo("final: %v\n", res.Final)
	return nil
}

func newStressHeap(limit int) (*heap.Heap, error) {
	setts := heapSettings()
	setts["limit"] = int64(limit)
	if stressFile == "" {
		return heap.NewMemory(heap.ExitSink{}, setts)
	}
	f, err := arena.Create(stressFile, 0)
	if err != nil {
		return nil, err
	}
	h := heap.New(f, heap.ExitSink{}, setts)
	if err := h.Initialise(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return h, nil
}

func stressStep(h *heap.Heap, rng *rand.Rand, live map[heap.Ptr]byte, maxSize int, seed byte, res *stressResult) error {
	switch op := rng.Intn(10); {
	case op < 4 || len(live) == 0:
		p, err := h.Alloc(rng.Intn(maxSize + 1))
		if err != nil {
			return countOOM(err, res)
		}
		stamp(h, p, seed)
		live[p] = seed

	case op < 5:
		p, err := h.Strdup(strconv.Itoa(rng.Int()))
		if err != nil {
			return countOOM(err, res)
		}
		live[p] = h.Bytes(p)[0]

	case op < 8:
		for p, old := range live {
			if !holds(h, p, old) {
				return fmt.Errorf("payload at 0x%X corrupted", uint32(p))
			}
			h.Free(p)
			delete(live, p)
			break
		}

	default:
		for p, old := range live {
			keep := min(h.SizeOf(p), 1)
			q, err := h.Realloc(p, rng.Intn(maxSize+1))
			if err != nil {
				return countOOM(err, res)
			}
			if keep > 0 && h.SizeOf(q) > 0 && h.Bytes(q)[0] != old {
				return fmt.Errorf("realloc 0x%X -> 0x%X lost its contents", uint32(p), uint32(q))
			}
			delete(live, p)
			stamp(h, q, old)
			live[q] = old
			break
		}
	}
	return nil
}

func countOOM(err error, res *stressResult) error {
	if errors.Is(err, heap.ErrOutOfMemory) {
		res.OutOfMemory++
		return nil
	}
	return err
}

// stamp fills p with seed so corruption shows up on free.
func stamp(h *heap.Heap, p heap.Ptr, seed byte) {
	b := h.Bytes(p)
	for i := range b {
		b[i] = seed
	}
}

func holds(h *heap.Heap, p heap.Ptr, seed byte) bool {
	b := h.Bytes(p)
	return len(b) == 0 || b[0] == seed
}

// parseLimit understands "0", humanized sizes and "auto".
func parseLimit(v string) (int, error) {
	if strings.EqualFold(v, "auto") {
		mem := sigar.Mem{}
		if err := mem.Get(); err != nil {
			return 0, fmt.Errorf("failed to read system memory: %w", err)
		}
		limit := mem.ActualFree / 4
		printVerbose("Free RAM %s, limiting arena to %s\n",
			humanize.IBytes(mem.ActualFree), humanize.IBytes(limit))
		return int(min(limit, uint64(1<<31-1))), nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid --limit: %w", err)
	}
	return int(min(n, uint64(1<<31-1))), nil
}
