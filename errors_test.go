package walter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := NewCmdError("unlock_sim", "AT+CPIN=0000", ResultError, CMEIncorrectPassword)
	s := err.Error()

	assert.Contains(t, s, "walter:")
	assert.Contains(t, s, "op=unlock_sim")
	assert.Contains(t, s, `cmd="AT+CPIN=0000"`)
	assert.Contains(t, s, "cme=16")
}

func TestErrorIsMatchesResult(t *testing.T) {
	err := NewError("http_query", ResultNoSuchProfile, "")
	assert.True(t, errors.Is(err, &Error{Result: ResultNoSuchProfile}))
	assert.False(t, errors.Is(err, &Error{Result: ResultTimeout}))
}

func TestWrapError(t *testing.T) {
	inner := fmt.Errorf("uart: device gone")
	err := WrapError("begin", inner)

	assert.Equal(t, "begin", err.Op)
	assert.Equal(t, ResultError, err.Result)
	assert.True(t, errors.Is(err, inner))
}

func TestWrapErrorKeepsStructuredContext(t *testing.T) {
	inner := NewCmdError("check_comm", "AT", ResultTimeout, 0)
	err := WrapError("begin", inner)

	assert.Equal(t, "begin", err.Op)
	assert.Equal(t, "AT", err.Cmd)
	assert.Equal(t, ResultTimeout, err.Result)
}

func TestWrapErrorNil(t *testing.T) {
	if WrapError("x", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestIsResultAndIsCME(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewCmdError("x", "AT+CPIN=1", ResultError, CMESIMNotInserted))

	assert.True(t, IsResult(err, ResultError))
	assert.False(t, IsResult(err, ResultOK))
	assert.True(t, IsCME(err, CMESIMNotInserted))
	assert.False(t, IsCME(err, CMEMemoryFull))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "ok", ResultOK.String())
	assert.Equal(t, "timeout", ResultTimeout.String())
	assert.Equal(t, "no such profile", ResultNoSuchProfile.String())
	assert.Equal(t, "unknown result", Result(99).String())
}
