package file

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Synchronous full write of one batch
func (sink *Sink) Write(data []byte) (err error) {
	err = writeFull(sink.fd, data)
	return
}

// Hands one batch to the async writer. The caller must not touch the
// buffer again until Reap returns its result; the drainer swaps to its
// second scratch buffer instead.
func (sink *Sink) Submit(data []byte) {
	sink.submit <- data
}

// Collects the result of the previously submitted write, blocking
// until the kernel accepted it
func (sink *Sink) Reap() (err error) {
	err = <-sink.result
	return
}

// Flushes kernel buffers to media. Diagnostic use only; direct I/O
// already bypasses the page cache.
func (sink *Sink) Fdatasync() (err error) {
	err = unix.Fdatasync(sink.fd)
	return
}

// Background writer: one write in flight at a time, result handed back
// through Reap
func (sink *Sink) writerLoop() {
	for data := range sink.submit {
		sink.result <- writeFull(sink.fd, data)
	}
	close(sink.result)
}

// Writes the whole buffer, retrying interrupted and short writes
func writeFull(fd int, data []byte) (err error) {
	for len(data) > 0 {
		var written int
		written, err = unix.Write(fd, data)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			err = fmt.Errorf("log write failed: %v", err)
			return
		}
		if written <= 0 {
			err = fmt.Errorf("short write: %d of %d bytes accepted", written, len(data))
			return
		}
		data = data[written:]
	}
	return
}
