package main

import (
	"errors"
	"fmt"
	"io"
	"net"

	flag "github.com/spf13/pflag"

	"github.com/DigitumDei/cvserve/internal/config"
)

// ErrUsage marks invalid command-line usage.
var ErrUsage = errors.New("invalid usage")

const (
	commandName = "cvserve"

	// EnvPort sets the default listen port.
	EnvPort     = "PORT"
	defaultPort = "8080"
)

// serverFlags holds every command-line flag.
type serverFlags struct {
	addr    string
	config  string
	workDir string
	verbose bool
	version bool
	doctor  bool
	json    bool
}

// defaultAddr listens on $PORT when set, as Cloud Run and the Functions
// Framework expect.
func defaultAddr(lookup config.LookupFunc) string {
	port, ok := lookup(EnvPort)
	if !ok || port == "" {
		port = defaultPort
	}
	return ":" + port
}

// parseFlags parses args (without the program name). Help text goes to out.
func parseFlags(args []string, lookup config.LookupFunc, out io.Writer) (*serverFlags, error) {
	f := &serverFlags{}
	fs := flag.NewFlagSet(commandName, flag.ContinueOnError)
	fs.SetOutput(out)

	fs.StringVar(&f.addr, "addr", defaultAddr(lookup), "listen address")
	fs.StringVarP(&f.config, "config", "c", "", "YAML options file (default $"+config.EnvConfigPath+")")
	fs.StringVar(&f.workDir, "workdir", "", "working copy directory (overrides config)")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	fs.BoolVar(&f.version, "version", false, "print version and exit")
	fs.BoolVar(&f.doctor, "doctor", false, "check the environment and exit")
	fs.BoolVar(&f.json, "json", false, "with --doctor, print JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %v", ErrUsage, fs.Args())
	}
	if _, _, err := net.SplitHostPort(f.addr); err != nil {
		return nil, fmt.Errorf("%w: --addr %q: %v", ErrUsage, f.addr, err)
	}
	return f, nil
}
