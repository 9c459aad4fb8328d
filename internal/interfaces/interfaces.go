// Package interfaces provides internal interface definitions for go-walter.
// These are separate from the public interfaces to avoid circular imports
// between the main package and internal packages.
package interfaces

// Port is the byte source/sink that carries the AT protocol. The real
// implementation owns a UART configured with hardware flow control; tests
// substitute a scripted mock.
type Port interface {
	// Read blocks until at least one byte is available and returns up to
	// len(p) bytes.
	Read(p []byte) (n int, err error)

	// Write blocks until all of p has been handed to the device, honouring
	// CTS backpressure.
	Write(p []byte) (n int, err error)

	Close() error
}

// ResetLine controls the active-low modem reset pin. The line is held high
// during normal operation.
type ResetLine interface {
	// Set drives the reset line: true is the released (high) level, false
	// asserts the reset.
	Set(high bool) error
}

// RetentionStore persists a small opaque record across deep sleep. On the
// Walter board this is the RTC retention memory of the host microcontroller;
// on a Linux host it is a file.
type RetentionStore interface {
	Store(blob []byte) error
	Load() ([]byte, error)
}

// Logger interface for optional logging.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}
