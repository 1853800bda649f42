package file

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Allocates a page-aligned scratch buffer outside the Go heap. Direct
// I/O requires the memory passed to write(2) to be block aligned, which
// a plain make([]byte) cannot guarantee.
func AllocBuffer(size int) (buffer []byte, err error) {
	buffer, err = unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		err = fmt.Errorf("failed to allocate %d byte output buffer: %v", size, err)
		return
	}
	return
}

// Returns a scratch buffer to the kernel
func FreeBuffer(buffer []byte) (err error) {
	if buffer == nil {
		return
	}
	err = unix.Munmap(buffer)
	return
}
