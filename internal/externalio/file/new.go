// Compressed log file output with optional direct and asynchronous I/O
package file

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Opens (create-or-append) the compressed log sink. With directIO the
// page cache is bypassed and every write must be block aligned in
// length and memory; the drainer guarantees both. With async a writer
// goroutine is spawned for Submit/Reap.
func Open(namespace []string, path string, directIO bool, async bool) (sink *Sink, err error) {
	if path == "" {
		err = fmt.Errorf("no output path given")
		return
	}

	flags := unix.O_CREAT | unix.O_APPEND | unix.O_WRONLY
	if directIO {
		flags |= unix.O_DIRECT
	}

	fd, err := unix.Open(path, flags, 0640)
	if err != nil {
		err = fmt.Errorf("failed to open log file %s: %v", path, err)
		return
	}
	if fd < 0 {
		// Descriptor 0 is valid; only negative values are errors
		err = fmt.Errorf("invalid descriptor %d for log file %s", fd, path)
		return
	}

	sink = &Sink{
		Namespace: namespace,
		path:      path,
		fd:        fd,
		directIO:  directIO,
	}

	if async {
		sink.submit = make(chan []byte)
		sink.result = make(chan error)
		go sink.writerLoop()
	}
	return
}

// Path this sink writes to
func (sink *Sink) Path() (path string) {
	path = sink.path
	return
}

// Releases the descriptor. Any in-flight async write must have been
// reaped first.
func (sink *Sink) Close() (err error) {
	if sink.submit != nil {
		close(sink.submit)
		sink.submit = nil
	}

	if sink.fd >= 0 {
		err = unix.Close(sink.fd)
		sink.fd = -1
	}
	return
}
