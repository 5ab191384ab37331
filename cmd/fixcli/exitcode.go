package main

import (
	"errors"

	"github.com/fix44engine/fix44/session"
)

// Exit codes per the connection contract: 0 normal logout, 1 fatal
// protocol error, 2 transport failure, 3 configuration error.
const (
	exitProtocolError = 1
	exitTransportFail = 2
	exitConfigError   = 3
)

// exitErr wraps err so main can report code on exit. A nil err returns
// nil, so call sites can wrap unconditionally on the way out.
type exitErr struct {
	code int
	err  error
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitErr{code: code, err: err}
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }
func (e *exitErr) ExitCode() int { return e.code }

// exitCodeOf reports the exit code carried by err, defaulting to 1 for
// an error that was never tagged with one.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return exitProtocolError
}

// classifySessionErr maps an error surfaced on a running session's Err
// channel to the exit code a supervisor should see once the session
// tears down because of it: the session engine's own fatal sentinels
// (sequence mismatch, logon/logout/test-request timeout) are protocol
// errors; everything else reaching this point is a codec or connection
// failure reported by the transport.
func classifySessionErr(err error) int {
	switch {
	case errors.Is(err, session.ErrSeqTooLow),
		errors.Is(err, session.ErrLogonExpected),
		errors.Is(err, session.ErrLogonExpire),
		errors.Is(err, session.ErrLogoutExpire),
		errors.Is(err, session.ErrTestReqExpire):
		return exitProtocolError
	default:
		return exitTransportFail
	}
}
