package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	logger "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/DigitumDei/cvserve"
	"github.com/DigitumDei/cvserve/internal/config"
	"github.com/DigitumDei/cvserve/internal/hints"
	"github.com/DigitumDei/cvserve/internal/logging"
	"github.com/DigitumDei/cvserve/internal/secrets"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args, DefaultEnv()))
}

// run starts the server and returns the process exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseFlags(args[1:], env.Lookup, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintln(env.Stderr, err)
		return exitCodeFor(err)
	}

	if flags.version {
		fmt.Fprintf(env.Stdout, "%s %s\n", commandName, Version)
		return ExitSuccess
	}
	if flags.doctor {
		return runDoctorCmd(flags, env)
	}

	// Error ignored: maxprocs.Set only fails if GOMAXPROCS env is invalid,
	// in which case Go runtime defaults apply and the program continues safely.
	_, _ = maxprocs.Set(maxprocs.Logger(logger.Debugf))

	level, _ := env.Lookup(config.EnvLogLevel)
	if flags.verbose {
		level = "debug"
	}
	logging.Setup(env.Stderr, level)

	if unknown := config.UnknownEnvVars(env.Environ()); len(unknown) > 0 {
		logger.WithField("vars", unknown).Warn("[config] Ignoring unknown CVSERVE_* environment variables")
	}

	opts, err := config.Load(flags.config, env.Lookup)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, config.ErrConfigNotFound) {
			msg += hints.ForConfigNotFound(flags.config)
		}
		logger.Error("[config] " + msg)
		return exitCodeFor(err)
	}
	if flags.workDir != "" {
		opts.WorkDir = flags.workDir
	}

	h := cvserve.NewHandler(
		cvserve.WithOptions(opts),
		cvserve.WithResolver(config.NewResolver(secrets.NewGCPStore(), env.Lookup)),
	)
	defer func() {
		if err := h.Close(); err != nil {
			logger.WithError(err).Warn("[server] Closing PDF renderer")
		}
	}()

	ctx, stop := notifyContext(ctx)
	defer stop()

	ln, err := net.Listen("tcp", flags.addr)
	if err != nil {
		logger.WithError(err).Error("[server] Cannot listen")
		return ExitGeneral
	}
	if err := serveListener(ctx, ln, newRouter(h)); err != nil {
		logger.WithError(err).Error("[server] Stopped with error")
		return exitCodeFor(err)
	}
	return ExitSuccess
}
