// Package gatt defines the client capability the poller core consumes. The
// actual radio stack lives behind these interfaces; see the goble subpackage
// for the production backend.
package gatt

import (
	"context"
)

// Client owns the radio and dials sensors by hardware address. Only one
// connection may be live at a time; callers must close a Conn before dialing
// the next device.
type Client interface {
	// Connect establishes a link with the device at addr, formatted as
	// colon-separated hex octets. The deadline on ctx bounds the attempt.
	Connect(ctx context.Context, addr string) (Conn, error)

	// Close releases the radio. No Conn may be open when Close is called.
	Close() error
}

// Conn is a live GATT connection to a single device. Characteristics are
// addressed by their 128-bit UUID in canonical string form.
type Conn interface {
	// Read returns the current value of the characteristic.
	Read(ctx context.Context, characteristic string) ([]byte, error)

	// Write sends value to the characteristic and waits for the
	// acknowledgement.
	Write(ctx context.Context, characteristic string, value []byte) error

	// Close tears the link down. Idempotent.
	Close() error
}
