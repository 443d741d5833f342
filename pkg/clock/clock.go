// Package clock supplies millisecond timestamps for atom creation. Production
// code uses the system clock; tests pin time with Fixed or the
// KNISHIO_FIXED_TIMESTAMP environment override recognized by FromEnv.
package clock

import (
	"os"
	"strconv"
	"time"
)

// EnvFixedTimestamp, when set, pins every timestamp produced by FromEnv to
// its value (decimal milliseconds since the Unix epoch).
const EnvFixedTimestamp = "KNISHIO_FIXED_TIMESTAMP"

// Clock produces the creation timestamp stamped onto atoms and molecules.
type Clock interface {
	// Now returns milliseconds since the Unix epoch as a decimal string.
	Now() string
}

// System reads the wall clock.
type System struct{}

// Now returns the current wall-clock time in epoch milliseconds.
func (System) Now() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// Fixed always reports the same timestamp.
type Fixed string

// Now returns the pinned timestamp.
func (f Fixed) Now() string {
	return string(f)
}

// FromEnv returns a Fixed clock when KNISHIO_FIXED_TIMESTAMP holds a valid
// millisecond timestamp, otherwise the system clock.
func FromEnv() Clock {
	v := os.Getenv(EnvFixedTimestamp)
	if v == "" {
		return System{}
	}
	if _, err := strconv.ParseInt(v, 10, 64); err != nil {
		return System{}
	}
	return Fixed(v)
}
