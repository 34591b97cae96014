package cdp

import (
	"errors"
	"fmt"
	"time"
)

// ErrConnClosed is returned for calls still pending when the connection
// closes, and for any call attempted after Close.
var ErrConnClosed = errors.New("cdp: connection closed")

// TimeoutError reports a call that received no reply within its timeout.
// The browser-side operation is not cancelled; only the caller's wait ends.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cdp: call %s timed out after %s", e.Method, e.Timeout)
}

// CallError is a protocol-level error reply to a call.
type CallError struct {
	Method  string
	Code    int
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("cdp: call %s failed: %s (code %d)", e.Method, e.Message, e.Code)
}
