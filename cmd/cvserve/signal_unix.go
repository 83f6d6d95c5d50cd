//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop the server gracefully.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
