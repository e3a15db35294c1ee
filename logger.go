package isdbtmux

import (
	"log"
	"os"
)

// Logger is the diagnostic sink the mux reports warnings and errors
// through — PMT overflow, Opus mapping fallback, H.264 missing start
// codes — per spec §7. A nil Logger is valid and silently drops everything.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// stdLogger adapts the standard library logger to Logger.
type stdLogger struct {
	l *log.Logger
}

// NewStdLogger builds a Logger writing to stderr with an "isdbtmux: "
// prefix, for callers that don't wire one of their own.
func NewStdLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "isdbtmux: ", log.LstdFlags)}
}

func (s *stdLogger) Debugf(format string, args ...interface{}) { s.l.Printf("DEBUG "+format, args...) }
func (s *stdLogger) Infof(format string, args ...interface{})  { s.l.Printf("INFO "+format, args...) }
func (s *stdLogger) Warnf(format string, args ...interface{})  { s.l.Printf("WARN "+format, args...) }
func (s *stdLogger) Errorf(format string, args ...interface{}) { s.l.Printf("ERROR "+format, args...) }

// noopLogger discards everything; the Muxer's zero-value logger.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}
