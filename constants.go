package walter

import "github.com/quickspot/go-walter/internal/constants"

// Re-export constants for public API
const (
	MaxPDPContexts     = constants.MaxPDPContexts
	MaxSockets         = constants.MaxSockets
	MaxHTTPProfiles    = constants.MaxHTTPProfiles
	MaxCoapProfiles    = constants.MaxCoapProfiles
	MaxTLSProfiles     = constants.MaxTLSProfiles
	DefaultCmdAttempts = constants.DefaultCmdAttempts
	CmdTimeout         = constants.CmdTimeout
	Baud               = constants.Baud
)
