package walter

import (
	"errors"
	"fmt"
)

// Error represents a structured modem error with operation context and the
// result code taxonomy shared with Rsp.
type Error struct {
	Op     string   // Operation that failed (e.g., "begin", "http_query")
	Cmd    string   // AT command involved ("" if not applicable)
	Result Result   // High-level error category
	CME    CMEError // CME number (0 if not applicable)
	Msg    string   // Human-readable message
	Inner  error    // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Result.String()
	}

	ctx := ""
	if e.Op != "" {
		ctx = fmt.Sprintf(" (op=%s", e.Op)
		if e.Cmd != "" {
			ctx += fmt.Sprintf(" cmd=%q", e.Cmd)
		}
		if e.CME != 0 {
			ctx += fmt.Sprintf(" cme=%d", e.CME)
		}
		ctx += ")"
	}

	return fmt.Sprintf("walter: %s%s", msg, ctx)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches two errors on their result code.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Result == te.Result
}

// Sentinel errors for conditions that do not originate from a command
// round-trip.
var (
	// ErrNotStarted names the condition of an operation that requires Begin
	// first. Command methods report that case as ResultError in their Rsp
	// and do not return this value.
	ErrNotStarted = errors.New("walter: modem not started")

	// ErrClosed is returned when the driver has been shut down.
	ErrClosed = errors.New("walter: modem closed")

	// ErrQueueFull names the condition of a command queue that cannot
	// accept another command. Command methods report that case as
	// ResultNoMemory in their Rsp and do not return this value.
	ErrQueueFull = errors.New("walter: command queue full")
)

// NewError creates a new structured error
func NewError(op string, result Result, msg string) *Error {
	return &Error{
		Op:     op,
		Result: result,
		Msg:    msg,
	}
}

// NewCmdError creates an error carrying the AT command that failed and the
// CME number reported by the modem (0 when the modem replied with a bare
// ERROR).
func NewCmdError(op, cmd string, result Result, cme CMEError) *Error {
	return &Error{
		Op:     op,
		Cmd:    cmd,
		Result: result,
		CME:    cme,
	}
}

// WrapError wraps an existing error with modem operation context.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if we, ok := inner.(*Error); ok {
		return &Error{
			Op:     op,
			Cmd:    we.Cmd,
			Result: we.Result,
			CME:    we.CME,
			Msg:    we.Msg,
			Inner:  we.Inner,
		}
	}

	return &Error{
		Op:     op,
		Result: ResultError,
		Msg:    inner.Error(),
		Inner:  inner,
	}
}

// IsResult checks if an error matches a specific result code
func IsResult(err error, result Result) bool {
	var we *Error
	if errors.As(err, &we) {
		return we.Result == result
	}
	return false
}

// IsCME checks if an error matches a specific CME number
func IsCME(err error, cme CMEError) bool {
	var we *Error
	if errors.As(err, &we) {
		return we.CME == cme
	}
	return false
}
