// Package main provides the xform CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/born-ml/xform/internal/configs"
	"github.com/born-ml/xform/internal/logs"
	"github.com/born-ml/xform/internal/script"
	"github.com/born-ml/xform/tensor"
)

const version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line args and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("xform", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "CUE configuration file")
	logLevel := flags.String("log-level", "", "log level: debug, info, warn or error (overrides the config)")
	journal := flags.Bool("journal", false, "also log to the systemd journal")
	flags.Usage = func() { usage(stderr, flags) }
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := flags.Args()
	if len(rest) == 0 {
		usage(stdout, flags)
		return 0
	}
	if rest[0] == "version" {
		fmt.Fprintf(stdout, "xform %s\n", version)
		return 0
	}

	s, err := newSession(*configPath, *logLevel, *journal, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "xform: %v\n", err)
		return 1
	}

	switch rest[0] {
	case "run":
		if len(rest) != 2 {
			fmt.Fprintln(stderr, "usage: xform run <script.star>")
			return 2
		}
		err = runScript(s, rest[1], stdout)
	case "demo":
		if len(rest) != 2 {
			fmt.Fprintf(stderr, "usage: xform demo <%s>\n", demoNames())
			return 2
		}
		demo, ok := demos[rest[1]]
		if !ok {
			fmt.Fprintf(stderr, "xform: unknown demo %q (available: %s)\n", rest[1], demoNames())
			return 2
		}
		err = demo(s, stdout)
	default:
		fmt.Fprintf(stderr, "xform: unknown command %q\n", rest[0])
		usage(stderr, flags)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "xform: %v\n", err)
		return 1
	}
	return 0
}

// newSession loads the configuration and builds the session logger.
func newSession(configPath, logLevel string, journal bool, stderr io.Writer) (*tensor.Session, error) {
	var files []string
	if configPath != "" {
		files = append(files, configPath)
	}
	cfg, err := configs.Load(files...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logs.New(stderr, logs.Options{Level: cfg.LogLevel, Journal: journal})
	if err != nil {
		return nil, err
	}
	return tensor.NewSession(cfg, tensor.WithLogger(logger)), nil
}

// runScript executes a Starlark file and prints its result global.
func runScript(s *tensor.Session, path string, stdout io.Writer) error {
	globals, err := script.New(s, script.WithOutput(stdout)).Exec(path, nil)
	if err != nil {
		return err
	}
	if result, ok := globals["result"]; ok {
		fmt.Fprintln(stdout, result.String())
	}
	return nil
}

func demoNames() string {
	names := lo.Keys(demos)
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func usage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintf(w, "xform %s - composable function transforms\n\n", version)
	fmt.Fprintln(w, "Usage: xform [flags] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version              Show version")
	fmt.Fprintln(w, "  run <script.star>    Run a Starlark script and print its result")
	fmt.Fprintf(w, "  demo <name>          Run a built-in demo (%s)\n", demoNames())
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	flags.SetOutput(w)
	flags.PrintDefaults()
}
