//go:build !linux

package uart

import (
	"fmt"
	"os"
	"runtime"
)

// openSerial is only implemented for Linux hosts; other platforms use a
// custom Port implementation instead.
func openSerial(path string) (*os.File, error) {
	return nil, fmt.Errorf("serial device support not implemented on %s", runtime.GOOS)
}
