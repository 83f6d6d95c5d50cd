package main

import (
	"errors"

	"github.com/DigitumDei/cvserve/internal/config"
)

// Exit codes for the cvserve binary.
// Follows Unix conventions: 0=success, 1=general, 2=usage.
const (
	ExitSuccess = 0 // Clean shutdown
	ExitGeneral = 1 // Server or unexpected error
	ExitUsage   = 2 // Invalid flags or configuration
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrInvalidOption) {
		return ExitUsage
	}

	return ExitGeneral
}
