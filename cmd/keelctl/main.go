// Command keelctl previews and commits spreadsheet imports against the
// configured store without going through the HTTP API.
package main

import (
	"errors"
	"fmt"
	"os"

	_ "github.com/amengaji/Keel/internal/core/domains" // Register all imports
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// exitError ends the process with a specific code after output was written.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
