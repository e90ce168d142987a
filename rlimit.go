package asyncevent

import (
	"sync"

	"github.com/talostrading/asyncevent/internal"
)

var maximizeOnce sync.Once

// MaximizeTotalFds raises the soft limit on open descriptors of the process
// to its hard limit. It is meant to be called once at startup; later calls do
// nothing and failures are ignored.
func MaximizeTotalFds() {
	maximizeOnce.Do(func() {
		_, _ = internal.RaiseNoFileLimit()
	})
}
