package log

import (
	"github.com/rs/zerolog"
)

// NewNopLogger returns a logger that discards every entry. Components default
// to it until a real logger is supplied through their options.
func NewNopLogger() Logger {
	return &defaultLogger{
		Logger: zerolog.Nop(),
	}
}
