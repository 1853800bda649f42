package logger

import (
	"context"
	"errors"
	"fastlog/internal/drainer"
	"fastlog/internal/externalio/file"
	"fastlog/internal/registry"
	"fastlog/internal/staging"
	"fastlog/pkg/protocol"
	"sync"
)

// Sentinel returned by TryLog when the calling goroutine's staging
// ring cannot take the record without waiting on the drainer
var ErrRingFull = errors.New("staging ring full")

// Runtime configuration. Zero values fall back to the defaults in
// internal/global.
type Config struct {
	LogFile           string
	StagingBufferSize int
	OutputBufferSize  int
	UseAsyncIO        bool
	UseDirectIO       bool
}

// Process-wide logging runtime: the registry of staging rings, the
// single drainer, and the output sink. Created by Start, torn down by
// Shutdown (drainer joined before any buffer is freed).
type Runtime struct {
	Namespace []string

	ctx   context.Context
	cfg   Config
	table *protocol.Table

	registry *registry.Registry

	// mu serializes drainer restarts (SetLogFile) and shutdown
	// against each other; never taken on the emit path
	mu      sync.Mutex
	sink    *file.Sink
	drainer *drainer.Drainer
	stopped bool

	maxEntrySize int
}

// Per-goroutine emit handle. Go has no thread-local storage, so the
// per-thread staging ring becomes an explicit handle the producing
// goroutine owns. Release marks the ring for reclamation; the drainer
// frees it after the last record drains.
type Producer struct {
	runtime *Runtime
	buffer  *staging.Buffer

	released bool
}
