package heap

import (
	"sync/atomic"

	"github.com/bnclabs/golog"
)

var logok = int64(0)

// LogComponents enables logging for this package when called with "heap"
// or "all". Logging is disabled by default.
func LogComponents(components ...string) {
	for _, comp := range components {
		switch comp {
		case "heap", "all":
			atomic.StoreInt64(&logok, 1)
		}
	}
}

func debugf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Debugf(format, v...)
	}
}

func infof(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Infof(format, v...)
	}
}

func errorf(format string, v ...interface{}) {
	if atomic.LoadInt64(&logok) > 0 {
		log.Errorf(format, v...)
	}
}
