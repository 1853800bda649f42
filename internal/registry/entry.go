// Membership tracking for live staging rings
package registry

import (
	"fastlog/internal/staging"
	"strconv"
)

// Creates new empty registry
func New(namespace []string) (new *Registry) {
	new = &Registry{
		Namespace: namespace,
		buffers:   make([]*staging.Buffer, 0),
	}
	return
}

// Creates a staging ring for a new producer and attaches it
func (registry *Registry) Attach(capacity int) (buffer *staging.Buffer, err error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	id := registry.nextID
	registry.nextID++

	buffer, err = staging.New(append(append([]string(nil), registry.Namespace...), "Ring", strconv.Itoa(id)), id, capacity)
	if err != nil {
		return
	}

	registry.buffers = append(registry.buffers, buffer)
	return
}

// Removes the ring at index. Caller must hold the registry lock.
func (registry *Registry) RemoveIndex(index int) {
	registry.buffers = append(registry.buffers[:index], registry.buffers[index+1:]...)
}

// Returns the ring at index. Caller must hold the registry lock.
func (registry *Registry) Index(index int) (buffer *staging.Buffer) {
	buffer = registry.buffers[index]
	return
}

// Number of live rings. Caller must hold the registry lock.
func (registry *Registry) Size() (count int) {
	count = len(registry.buffers)
	return
}

// Lock/Unlock expose the membership mutex so the drainer can release
// it around per-ring compression work
func (registry *Registry) Lock() {
	registry.mu.Lock()
}

func (registry *Registry) Unlock() {
	registry.mu.Unlock()
}

// Snapshot of live rings for metric collection
func (registry *Registry) Snapshot() (buffers []*staging.Buffer) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	buffers = append(buffers, registry.buffers...)
	return
}
