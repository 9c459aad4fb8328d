// walter-passthrough bridges a terminal to the modem UART so AT commands
// can be issued by hand. Lines typed on stdin are sent CRLF-terminated;
// everything the modem emits is echoed to stdout.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/quickspot/go-walter/internal/uart"
)

func main() {
	var (
		device   = flag.String("device", "/dev/ttyUSB0", "Serial device connected to the modem")
		resetPin = flag.Int("reset-gpio", -1, "GPIO line of the modem reset pin (-1 to skip the reset)")
		verbose  = flag.Bool("v", false, "Echo transmitted lines")
	)
	flag.Parse()

	port := uart.NewLazy(*device, nil)
	if err := port.Open(); err != nil {
		log.Fatalf("Failed to open %s: %v", *device, err)
	}
	defer port.Close()

	if *resetPin >= 0 {
		gpio, err := uart.NewGPIO(*resetPin)
		if err != nil {
			log.Fatalf("Failed to configure reset GPIO: %v", err)
		}
		fmt.Println("Resetting modem...")
		if err := gpio.Set(false); err != nil {
			log.Fatalf("Failed to assert reset: %v", err)
		}
		time.Sleep(300 * time.Millisecond)
		if err := gpio.Set(true); err != nil {
			log.Fatalf("Failed to release reset: %v", err)
		}
	}

	// Modem to terminal.
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := port.Read(buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				if err != io.EOF {
					log.Printf("read: %v", err)
				}
				os.Exit(0)
			}
		}
	}()

	fmt.Printf("Connected to %s, type AT commands (Ctrl-D to exit)\n", *device)

	// Terminal to modem.
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if *verbose {
			fmt.Printf(">> %s\n", line)
		}
		if _, err := port.Write([]byte(line + "\r\n")); err != nil {
			log.Fatalf("write: %v", err)
		}
	}
}
