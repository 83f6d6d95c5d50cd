package main

import (
	"io"
	"os"

	"github.com/DigitumDei/cvserve/internal/config"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Lookup  config.LookupFunc
	Environ func() []string
}

// DefaultEnv returns the process environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Lookup:  config.OSLookup,
		Environ: os.Environ,
	}
}
