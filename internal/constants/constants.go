package constants

import "time"

// Modem resource table sizes. These match the Sequans Monarch 2 firmware
// limits as deployed on the Walter board.
const (
	// MaxPDPContexts is the number of PDP contexts the modem supports,
	// indexed 1..MaxPDPContexts.
	MaxPDPContexts = 8

	// MaxSockets is the number of sockets the modem supports, indexed
	// 1..MaxSockets.
	MaxSockets = 6

	// MaxHTTPProfiles is the number of HTTP profiles, indexed 0..2.
	MaxHTTPProfiles = 3

	// MaxCoapProfiles is the number of CoAP contexts, indexed 0..2.
	MaxCoapProfiles = 3

	// MaxTLSProfiles is the number of TLS security profiles, indexed 1..6.
	MaxTLSProfiles = 6

	// OperatorMaxSize is the maximum number of characters of an operator name.
	OperatorMaxSize = 16
)

// Command execution constants.
const (
	// DefaultCmdAttempts is the default number of attempts to execute a
	// command before giving up.
	DefaultCmdAttempts = 3

	// CmdTimeout is the per-attempt deadline after which a pending command
	// is retried or completed with a timeout.
	CmdTimeout = 5 * time.Second

	// TaskQueueDepth is the capacity of the task queue which carries both
	// parsed responses and newly submitted commands. Frames that arrive
	// while the queue is full are dropped.
	TaskQueueDepth = 32

	// CommandQueueDepth is the capacity of the command FIFO. Submitting a
	// command while the FIFO is full fails with a no-memory result.
	CommandQueueDepth = 32
)

// UART constants.
const (
	// Baud is the baud rate used to talk to the modem.
	Baud = 115200

	// ReadBufferSize is the size of the buffer used by the UART reader.
	ReadBufferSize = 256
)

// Timing constants for the modem lifecycle.
const (
	// ResetPulse is how long the reset line is held low to hardware-reset
	// the modem. The datasheet requires at least 10 ms.
	ResetPulse = 300 * time.Millisecond

	// MinValidTimestamp is the lower bound for a clock value reported by
	// the modem. Anything below 1 Jan 2023 00:00:00 UTC means the modem
	// has not yet obtained network time.
	MinValidTimestamp = 1672531200
)

// HTTPBodyTrailer is the byte sequence the modem appends after an HTTP
// response body delivered behind a <<< marker. The raw-mode byte budget
// includes it so the parser consumes it together with the body.
const HTTPBodyTrailer = "\r\nOK\r\n"

// MQTT constants.
const (
	// MQTTMaxPendingRings is the default size of the library-side MQTT
	// message inbox.
	MQTTMaxPendingRings = 8

	// MQTTMaxMessageLen is the maximum payload length the modem delivers
	// in a single message.
	MQTTMaxMessageLen = 4096
)
