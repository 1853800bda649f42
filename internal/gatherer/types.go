package gatherer

import (
	"fastlog/internal/metrics"
	"fastlog/pkg/logger"
	"time"
)

// Periodic collector pulling drainer and staging ring counters into
// the central time-sliced registry
type Gatherer struct {
	Registry *metrics.Registry

	Runtime   *logger.Runtime
	Interval  time.Duration
	Retention time.Duration
}
