// Package uart owns the serial device that carries the AT protocol: a UART
// at 115200 8N1 with hardware RTS/CTS flow control, plus the active-low
// reset GPIO of the modem.
package uart

import (
	"fmt"
	"os"
	"sync"

	"github.com/quickspot/go-walter/internal/interfaces"
)

// Device is a serial port implementing the driver's byte source/sink. It
// opens lazily so a Modem can be constructed before the hardware is
// available.
type Device struct {
	path   string
	logger interfaces.Logger

	mu   sync.Mutex
	file *os.File
}

// NewLazy returns a Device that opens path on the first Open call.
func NewLazy(path string, logger interfaces.Logger) *Device {
	return &Device{path: path, logger: logger}
}

// Open opens and configures the serial device. Opening an already open
// device is a no-op.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		return nil
	}

	file, err := openSerial(d.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", d.path, err)
	}
	d.file = file

	if d.logger != nil {
		d.logger.Debugf("opened %s at 115200 8N1 with RTS/CTS", d.path)
	}
	return nil
}

func (d *Device) handle() (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil, fmt.Errorf("uart %s not open", d.path)
	}
	return d.file, nil
}

// Read blocks until at least one byte is available.
func (d *Device) Read(p []byte) (int, error) {
	file, err := d.handle()
	if err != nil {
		return 0, err
	}
	return file.Read(p)
}

// Write blocks until all of p has been handed to the device, honouring CTS
// backpressure through the kernel's flow control.
func (d *Device) Write(p []byte) (int, error) {
	file, err := d.handle()
	if err != nil {
		return 0, err
	}
	return file.Write(p)
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// Kick unblocks a reader parked in a blocking read by closing the device.
func (d *Device) Kick() {
	_ = d.Close()
}

var _ interfaces.Port = (*Device)(nil)
