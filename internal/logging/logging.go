// Package logging provides a minimal leveled wrapper around the standard
// library logger. Nothing in the retrieval pack pulls in a structured
// logging library (zerolog/zap/logrus) — every example prints with
// log.Printf/fmt.Printf — so this keeps that texture while giving call
// sites a level to reach for.
package logging

import (
	"log"
	"os"
)

// Logger is a leveled log.Logger wrapper. The zero value is not usable;
// construct one with New.
type Logger struct {
	out *log.Logger
}

// New returns a Logger that writes to stderr with a component prefix,
// e.g. New("executor").
func New(component string) *Logger {
	return &Logger{out: log.New(os.Stderr, "["+component+"] ", log.LstdFlags)}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.out.Printf("INFO  "+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.out.Printf("WARN  "+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.out.Printf("ERROR "+format, args...)
}
