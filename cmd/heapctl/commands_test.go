package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInfoVerify(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "test.fhp")

	out, err := captureOutput(t, func() error { return runCreate([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.Contains(t, out, "1.0 KiB")

	out, err = captureOutput(t, func() error { return runStrdup([]string{path, "alpha", "beta"}) })
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")

	out, err = captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, "Heap Information")
	assert.Contains(t, out, "Live:       2 cells")

	out, err = captureOutput(t, func() error { return runVerify([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, "structure valid")
}

func TestInfoJSON(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "test.fhp")
	_, err := captureOutput(t, func() error { return runCreate([]string{path}) })
	require.NoError(t, err)

	jsonOut = true
	defer resetFlags()
	out, err := captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, `"capacity": 1024`)
	assert.Contains(t, out, `"usage"`)
}

func TestStrdupFreeLeavesHeapEmpty(t *testing.T) {
	resetFlags()
	path := filepath.Join(t.TempDir(), "test.fhp")
	_, err := captureOutput(t, func() error { return runCreate([]string{path}) })
	require.NoError(t, err)

	strdupFree = true
	_, err = captureOutput(t, func() error { return runStrdup([]string{path, "gone"}) })
	require.NoError(t, err)

	jsonOut = true
	defer resetFlags()
	out, err := captureOutput(t, func() error { return runInfo([]string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, `"LiveCount": 0`)
}

func TestStressInMemory(t *testing.T) {
	resetFlags()
	quiet = true
	defer resetFlags()

	_, err := captureOutput(t, runStress)
	require.NoError(t, err)
}

func TestStressWithLimit(t *testing.T) {
	resetFlags()
	jsonOut = true
	stressLimit = "64KiB"
	stressMaxSize = "16KiB"
	defer resetFlags()

	out, err := captureOutput(t, runStress)
	require.NoError(t, err)
	assert.Contains(t, out, `"out_of_memory"`)
}

func TestStressFile(t *testing.T) {
	resetFlags()
	quiet = true
	stressFile = filepath.Join(t.TempDir(), "stress.fhp")
	defer resetFlags()

	_, err := captureOutput(t, runStress)
	require.NoError(t, err)

	_, err = captureOutput(t, func() error { return runVerify([]string{stressFile}) })
	require.NoError(t, err)
}

func TestStressFileHonoursLimit(t *testing.T) {
	resetFlags()
	jsonOut = true
	stressFile = filepath.Join(t.TempDir(), "stress.fhp")
	stressLimit = "64KiB"
	stressMaxSize = "16KiB"
	defer resetFlags()

	out, err := captureOutput(t, runStress)
	require.NoError(t, err)

	var res stressResult
	require.NoError(t, jsonConfig.UnmarshalFromString(out, &res))
	assert.Positive(t, res.OutOfMemory)
	assert.LessOrEqual(t, res.PeakCap, 64<<10)

	_, err = captureOutput(t, func() error { return runVerify([]string{stressFile}) })
	require.NoError(t, err)
}

func TestParseLimit(t *testing.T) {
	n, err := parseLimit("0")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = parseLimit("1MiB")
	require.NoError(t, err)
	assert.Equal(t, 1<<20, n)

	n, err = parseLimit("AUTO")
	require.NoError(t, err)
	assert.Positive(t, n)

	_, err = parseLimit("lots")
	require.Error(t, err)
}

func TestVerifyMissingFile(t *testing.T) {
	resetFlags()
	_, err := captureOutput(t, func() error {
		return runVerify([]string{filepath.Join(t.TempDir(), "missing.fhp")})
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to open"))
}
