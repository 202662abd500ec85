package arena

import (
	"sync/atomic"

	"github.com/bnclabs/golog"
)

var logok = int64(0)

// LogComponents enables logging for this package when called with "arena"
// or "all". Logging is disabled by default.
func LogComponents(components ...string) {
	for _, comp := range components {
		switch comp {
		case "arena", "all":
			atomic.StoreInt64(&logok, 1)
		}
	}
}

func debugf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Debugf(format, v...)
	}
}
