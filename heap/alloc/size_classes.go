package alloc

import (
	"fmt"
	"math"
	"strings"
)

// SizeClassConfig defines the size class layout of the free lists.
type SizeClassConfig struct {
	// Name for this configuration (settings value and benchmark label)
	Name string

	// Small cells (linear increments)
	SmallMin       int32 // Minimum cell size (8)
	SmallMax       int32 // Max for linear increments
	SmallIncrement int32 // Increment size for small cells (8, 16, or 32)

	// Medium cells (logarithmic growth); anything at or above MediumMax goes to the large list
	MediumMax    int32
	GrowthFactor float64
}

// Predefined configurations.
var (
	// ConfigFineGrained: many small buckets, good for varied workloads.
	// 8-256 step 8 (31 classes) + 256-16K log growth (~10 classes).
	ConfigFineGrained = SizeClassConfig{
		Name:           "fine",
		SmallMin:       8,
		SmallMax:       256,
		SmallIncrement: 8,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// ConfigBalanced: balance between heap count and granularity.
	// 8-512 step 16 (32 classes) + 512-16K log growth (~8 classes).
	ConfigBalanced = SizeClassConfig{
		Name:           "balanced",
		SmallMin:       8,
		SmallMax:       512,
		SmallIncrement: 16,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// ConfigCoarse: fewer buckets, faster operations, more internal fragmentation.
	// 8-512 step 32 (16 classes) + 512-16K log growth (~5 classes).
	ConfigCoarse = SizeClassConfig{
		Name:           "coarse",
		SmallMin:       8,
		SmallMax:       512,
		SmallIncrement: 32,
		MediumMax:      16384,
		GrowthFactor:   2.0,
	}

	// ConfigStrings: tuned for short NUL-terminated strings.
	// 8-128 step 8 (15 classes) + 128-16K at 1.3x (~19 classes).
	ConfigStrings = SizeClassConfig{
		Name:           "strings",
		SmallMin:       8,
		SmallMax:       128,
		SmallIncrement: 8,
		MediumMax:      16384,
		GrowthFactor:   1.3,
	}

	// DefaultConfig is used when none is specified.
	DefaultConfig = ConfigBalanced
)

// ConfigByName returns the predefined configuration called name
// (case-insensitive). An empty name selects DefaultConfig.
func ConfigByName(name string) (*SizeClassConfig, error) {
	var c SizeClassConfig
	switch strings.ToLower(name) {
	case "":
		c = DefaultConfig
	case ConfigFineGrained.Name:
		c = ConfigFineGrained
	case ConfigBalanced.Name:
		c = ConfigBalanced
	case ConfigCoarse.Name:
		c = ConfigCoarse
	case ConfigStrings.Name:
		c = ConfigStrings
	default:
		return nil, fmt.Errorf("alloc: unknown size class config %q", name)
	}
	return &c, nil
}

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	boundaries []int32 // Upper bound for each size class
	numClasses int
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config:     config,
		boundaries: make([]int32, 0, 64),
	}

	// Phase 1: small cells (linear increments)
	for size := config.SmallMin; size < config.SmallMax; size += config.SmallIncrement {
		table.boundaries = append(table.boundaries, size+config.SmallIncrement-1)
	}

	// Phase 2: medium cells (logarithmic growth)
	if config.SmallMax < config.MediumMax {
		size := config.SmallMax
		for size < config.MediumMax {
			nextSize := int32(math.Ceil(float64(size) * config.GrowthFactor))
			if nextSize <= size {
				nextSize = size + 1
			}
			table.boundaries = append(table.boundaries, nextSize-1)
			size = nextSize
		}
	}

	table.numClasses = len(table.boundaries)
	return table
}

// getSizeClass returns the size class index for a cell size.
// Returns table.numClasses for sizes above every boundary (large list).
func (t *sizeClassTable) getSizeClass(size int32) int {
	lo, hi := 0, t.numClasses-1

	for lo <= hi {
		mid := (lo + hi) / 2
		if size <= t.boundaries[mid] {
			if mid == 0 || size > t.boundaries[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	return t.numClasses
}

func (t *sizeClassTable) String() string {
	return t.config.Name
}

// NumClasses returns the number of size classes (excluding the large list).
func (t *sizeClassTable) NumClasses() int {
	return t.numClasses
}
