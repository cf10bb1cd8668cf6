// Package protocol classifies the errors that can occur while talking to a
// sensor, so that callers can decide whether a failed session is worth
// retrying without inspecting error strings.
package protocol

import (
	"errors"
	"fmt"
)

// Op identifies the GATT operation that produced a LinkError.
type Op int

const (
	OpConnect Op = iota
	OpWrite
	OpRead
	OpDisconnect
)

var opNames = map[Op]string{
	OpConnect:    "connect",
	OpWrite:      "write",
	OpRead:       "read",
	OpDisconnect: "disconnect",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// Error exposes methods useful for categorizing errors.
type Error interface {
	error

	// Temporary returns true if the Error might be the result of a transient
	// condition. Sensors drop out of range or fail to answer a connection
	// request fairly often, and a second attempt usually succeeds.
	Temporary() bool

	// Timeout returns true if the Error was caused by an expired step
	// deadline rather than an explicit rejection from the link layer.
	Timeout() bool
}

// LinkError wraps a failure reported by (or timed out waiting for) the radio
// link during a single GATT operation.
type LinkError struct {
	Op      Op
	Err     error
	Expired bool
}

func (e *LinkError) Error() string {
	if e.Expired {
		return fmt.Sprintf("gatt %s: timed out: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("gatt %s: %s", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the whole session might help. Connection
// attempts and step timeouts are considered transient; an explicit write or
// read rejection from a connected device is not.
func (e *LinkError) Temporary() bool {
	return e.Expired || e.Op == OpConnect
}

func (e *LinkError) Timeout() bool {
	return e.Expired
}

// DecodeError indicates a characteristic value was present but too short to
// hold the named field. The payload is never dereferenced past its length.
type DecodeError struct {
	Field string
	Need  int
	Got   int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: need %d bytes, got %d", e.Field, e.Need, e.Got)
}

func (e *DecodeError) Temporary() bool {
	return false
}

func (e *DecodeError) Timeout() bool {
	return false
}

// Temporary returns true if err indicates a transient condition.
func Temporary(err error) bool {
	var perr Error
	if errors.As(err, &perr) {
		return perr.Temporary()
	}
	return false
}

// Timeout returns true if err was caused by an expired step deadline.
func Timeout(err error) bool {
	var perr Error
	if errors.As(err, &perr) {
		return perr.Timeout()
	}
	return false
}

// ShouldRetry returns true if the caller should run a fresh session against
// the same sensor after an error.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return Temporary(err)
}

// OpOf extracts the failing GATT operation from err, if any. The second
// return value is false for decode errors and foreign errors.
func OpOf(err error) (Op, bool) {
	var lerr *LinkError
	if errors.As(err, &lerr) {
		return lerr.Op, true
	}
	return 0, false
}
