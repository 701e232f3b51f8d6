// Package logging provides the process-wide logger used across drover.
// Output goes to stderr so tool output and chat text on stdout stay clean.
package logging

import (
	"io"
	"log"
	"os"
)

var (
	disabled = false
	verbose  = false
	logger   = log.New(os.Stderr, "", log.LstdFlags)
)

// Disable turns off all logging.
func Disable() {
	disabled = true
}

// Enable turns logging back on.
func Enable() {
	disabled = false
}

// SetVerbose controls whether Debugf output is emitted.
func SetVerbose(on bool) {
	verbose = on
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	if !disabled {
		logger.Printf("INFO  "+format, v...)
	}
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...any) {
	if !disabled {
		logger.Printf("WARN  "+format, v...)
	}
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...any) {
	if !disabled {
		logger.Printf("ERROR "+format, v...)
	}
}

// Debugf logs a formatted debug message when verbose mode is on.
func Debugf(format string, v ...any) {
	if !disabled && verbose {
		logger.Printf("DEBUG "+format, v...)
	}
}
