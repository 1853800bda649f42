package registry

import (
	"fastlog/internal/staging"
	"sync"
)

// Process-wide collection of live staging rings. The mutex is held for
// membership changes and for the drainer's cursor moves across the
// list, never across compression or file I/O.
type Registry struct {
	Namespace []string

	mu      sync.Mutex
	buffers []*staging.Buffer
	nextID  int // Next unused staging ring id
}
