package engine

import "log"

// Logger defines the interface for logging
type Logger interface {
	Debug(message string)
	Error(message string)
}

// StdLogger writes log lines with the standard library logger.
type StdLogger struct {
	Verbose bool
}

func (l StdLogger) Debug(message string) {
	if l.Verbose {
		log.Println("DEBUG:", message)
	}
}

func (l StdLogger) Error(message string) {
	log.Println("ERROR:", message)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string) {}
func (NopLogger) Error(string) {}
