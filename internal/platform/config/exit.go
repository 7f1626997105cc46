package config

import (
	"fmt"
	"io"
	"os"
)

// exit is swapped in tests.
var exit = os.Exit

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	exitf(os.Stderr, format, args...)
}

// ExitIfError exits through Exitf when err is non-nil, prefixing the message
// with action.
func ExitIfError(action string, err error) {
	if err == nil {
		return
	}
	exitf(os.Stderr, "%s: %v", action, err)
}

func exitf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
	exit(1)
}
