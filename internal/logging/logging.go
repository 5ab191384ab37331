// Package logging provides leveled stdlib loggers for fixcli and the
// admin/broker/metrics collaborators, layering Debug/Info/Warn/Error
// over package-level io.Writer fields instead of pulling in a
// structured logging library. session's own wire-level Trace logging
// is unaffected by this package.
package logging

import (
	"io"
	"log"
	"os"
)

var (
	DebugWriter io.Writer = io.Discard
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	debugLog = log.New(DebugWriter, "DEBUG ", log.LstdFlags)
	infoLog  = log.New(InfoWriter, "INFO  ", log.LstdFlags)
	warnLog  = log.New(WarnWriter, "WARN  ", log.LstdFlags)
	errLog   = log.New(ErrWriter, "ERROR ", log.LstdFlags)
)

// SetLevel switches which severities actually write output: "debug",
// "info" (default), "warn", or "error".
func SetLevel(level string) {
	DebugWriter, InfoWriter, WarnWriter, ErrWriter = io.Discard, io.Discard, io.Discard, os.Stderr
	switch level {
	case "debug":
		DebugWriter = os.Stderr
		fallthrough
	case "info":
		InfoWriter = os.Stderr
		fallthrough
	case "warn":
		WarnWriter = os.Stderr
	case "error":
	default:
		InfoWriter = os.Stderr
		WarnWriter = os.Stderr
	}
	debugLog.SetOutput(DebugWriter)
	infoLog.SetOutput(InfoWriter)
	warnLog.SetOutput(WarnWriter)
	errLog.SetOutput(ErrWriter)
}

func Debugf(format string, v ...any) { debugLog.Printf(format, v...) }
func Infof(format string, v ...any)  { infoLog.Printf(format, v...) }
func Warnf(format string, v ...any)  { warnLog.Printf(format, v...) }
func Errorf(format string, v ...any) { errLog.Printf(format, v...) }
