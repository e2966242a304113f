package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/keshon/bvctree/internal/fs"
)

// EnvLogLevel overrides the default log level when --log-level is not given.
const EnvLogLevel = "BVCTREE_LOG_LEVEL"

// RunCLI is the main entrypoint for executing commands.
// It parses arguments, resolves subcommands, applies flags, and runs the target command.
func RunCLI(args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Run(ctx, args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Run executes one command line and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := pflag.NewFlagSet("bvctree", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(stderr)

	var opts GlobalOptions
	global.StringVarP(&opts.RepoDir, "repo", "R", "", "repository directory (default: search upwards from the working directory)")
	global.StringVar(&opts.LogLevel, "log-level", envOr(EnvLogLevel, "warn"), "log level: debug, info, warn or error")
	global.StringVar(&opts.MetricsFile, "metrics-file", "", "write store metrics in Prometheus text format to this file on exit")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	logger, err := NewLogger(stderr, opts.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: no command provided")
		fmt.Fprintln(stderr, "Type 'bvctree help' to list commands.")
		return 1
	}

	node, remaining, err := ResolveCommand(rest)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	cmd := node.Cmd

	flags := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	cmd.Flags(flags)
	if err := flags.Parse(remaining); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(stdout, "Usage: %s\n\n%s\n", cmd.Usage(), cmd.Help())
			return 0
		}
		fmt.Fprintln(stderr, "Error parsing flags:", err)
		fmt.Fprintf(stderr, "Usage: %s\n", cmd.Usage())
		return 2
	}

	c := &Context{
		Ctx:      ctx,
		Args:     flags.Args(),
		Flags:    flags,
		Global:   opts,
		Stdout:   stdout,
		Stderr:   stderr,
		Logger:   logger,
		FS:       fs.NewOSFS(),
		Registry: prometheus.NewRegistry(),
	}

	runErr := cmd.Run(c)
	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, c.Registry); err != nil {
			logger.Error("write metrics", "file", opts.MetricsFile, "error", err)
		}
	}
	if runErr != nil {
		fmt.Fprintln(stderr, "Error:", runErr)
		return 1
	}
	return 0
}

// NewLogger returns a text logger writing to w at the named level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
