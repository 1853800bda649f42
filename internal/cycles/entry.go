// Monotonic cycle counter used to timestamp log records at emission
package cycles

import (
	"time"

	"golang.org/x/sys/unix"
)

// Reads the raw monotonic clock. Used on the producer hot path, so the
// value is left as raw nanoseconds and only converted for display.
// Monotonic per thread is the only requirement; wall-clock rendering is
// an offline concern.
func Now() (count uint64) {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts)
	if err != nil {
		// Fall back to the runtime monotonic clock
		count = uint64(time.Now().UnixNano())
		return
	}

	count = uint64(ts.Sec)*1_000_000_000 + uint64(ts.Nsec)
	return
}

// Converts a counter delta to seconds
func ToSeconds(delta uint64) (seconds float64) {
	seconds = float64(delta) / 1e9
	return
}
