package uart

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// openSerial opens the device and puts the line in raw mode: 115200 baud,
// 8 data bits, no parity, one stop bit, hardware RTS/CTS flow control.
func openSerial(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TCGETS: %w", err)
	}

	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	tio.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | unix.CRTSCTS

	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= baudFlag
	tio.Ispeed = baudFlag
	tio.Ospeed = baudFlag

	// Block until at least one byte arrives; no inter-byte timer.
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TCSETS: %w", err)
	}

	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TCFLSH: %w", err)
	}

	return os.NewFile(uintptr(fd), path), nil
}

// baudFlag is the termios speed constant for the modem's 115200 baud line.
const baudFlag = unix.B115200

// GPIO drives the modem reset line through the sysfs GPIO interface. The
// line is active low and held high during normal operation.
type GPIO struct {
	line int
}

// NewGPIO exports the given GPIO line as an output driven high.
func NewGPIO(line int) (*GPIO, error) {
	g := &GPIO{line: line}

	path := fmt.Sprintf("/sys/class/gpio/gpio%d", line)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile("/sys/class/gpio/export",
			[]byte(fmt.Sprintf("%d", line)), 0o200); err != nil {
			return nil, fmt.Errorf("failed to export GPIO %d: %w", line, err)
		}
	}
	if err := os.WriteFile(path+"/direction", []byte("high"), 0o200); err != nil {
		return nil, fmt.Errorf("failed to configure GPIO %d: %w", line, err)
	}

	return g, nil
}

// Set drives the line: true is the released (high) level, false asserts the
// active-low reset.
func (g *GPIO) Set(high bool) error {
	value := "0"
	if high {
		value = "1"
	}
	return os.WriteFile(
		fmt.Sprintf("/sys/class/gpio/gpio%d/value", g.line),
		[]byte(value), 0o200)
}
