package file

// Compressed log sink. All writes come from the single drainer
// goroutine; the async writer goroutine exists only to overlap disk
// time with compression (submit one scratch buffer, keep compressing
// into the other).
type Sink struct {
	Namespace []string

	path     string
	fd       int
	directIO bool

	// Async writer plumbing. Exactly one write may be in flight;
	// the drainer reaps the previous submission before the next.
	submit chan []byte
	result chan error
}
