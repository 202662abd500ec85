package alloc

import (
	"os"
	"sync/atomic"

	"github.com/bnclabs/golog"
)

// logok is set by LogComponents or the FLEXHEAP_LOG_ALLOC environment variable.
var logok = func() int64 {
	if os.Getenv("FLEXHEAP_LOG_ALLOC") != "" {
		return 1
	}
	return 0
}()

// LogComponents enables allocator logging when called with "alloc" or "all".
func LogComponents(components ...string) {
	for _, comp := range components {
		switch comp {
		case "alloc", "all":
			atomic.StoreInt64(&logok, 1)
		}
	}
}

func logEnabled() bool { return atomic.LoadInt64(&logok) > 0 }

func debugf(format string, v ...interface{}) {
	if logEnabled() {
		log.Debugf(format, v...)
	}
}

func warnf(format string, v ...interface{}) {
	if logEnabled() {
		log.Warnf(format, v...)
	}
}
