package heap

import (
	"fmt"
	"os"

	"github.com/bnclabs/golog"
)

// Fatal codes passed to FatalSink.ReportFatal. They double as process exit
// statuses for ExitSink.
const (
	// FatalInconsistent: the allocator rejected a request that growth
	// should have satisfied, or rejected a release.
	FatalInconsistent = 70

	// FatalInitialise: the descriptor could not be installed over a block
	// the provider had already committed.
	FatalInitialise = 71
)

// FatalSink receives unrecoverable heap errors. ReportFatal must not return.
type FatalSink interface {
	ReportFatal(code int, msg string)
}

// SinkFunc adapts a function to FatalSink.
type SinkFunc func(code int, msg string)

// ReportFatal implements FatalSink.
func (f SinkFunc) ReportFatal(code int, msg string) { f(code, msg) }

// ExitSink logs at fatal level and exits the process with code.
type ExitSink struct{}

// ReportFatal implements FatalSink.
func (ExitSink) ReportFatal(code int, msg string) {
	log.Fatalf("heap: fatal %d: %s\n", code, msg)
	os.Exit(code)
}

// FatalError is the panic value raised when a FatalSink returns.
type FatalError struct {
	Code int
	Msg  string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("heap: fatal %d: %s", e.Code, e.Msg)
}

// fatal reports to the sink and never returns.
func (h *Heap) fatal(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.stats.Fatals++
	errorf("heap: fatal %d: %s\n", code, msg)
	h.sink.ReportFatal(code, msg)
	panic(&FatalError{Code: code, Msg: msg})
}
