package main

import (
	"bytes"
	"io"
	"os"
	"testing"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fnErr := fn()

	_ = w.Close()
	os.Stdout = origStdout
	return <-done, fnErr
}

// resetFlags restores the global flags between tests.
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false
	logLevel = ""
	granularity = 1024
	overhead = 16
	sizeclass = "balanced"
	strdupFree = false
	stressOps = 2000
	stressMaxSize = "2KiB"
	stressLimit = "0"
	stressSeed = 1
	stressFile = ""
	stressCheck = 100
}
