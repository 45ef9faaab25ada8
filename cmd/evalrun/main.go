package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/evalmachine/internal/domain/runner"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/evalmachine/internal/script/evalmachine"
	"github.com/GriffinCanCode/evalmachine/internal/script/object"
	"github.com/GriffinCanCode/evalmachine/internal/script/scripterr"
	"github.com/GriffinCanCode/evalmachine/internal/script/seed"
)

// Exit codes.
const (
	exitOK      = 0
	exitUsage   = 2
	exitCompile = 3
	exitRuntime = 4
	exitFailure = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evalrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		mode          = fs.String("mode", "new", "Environment: this (the host) or new (a fresh sandbox)")
		sandboxPath   = fs.String("sandbox", "", "Seed the sandbox from a .json, .yaml or .toml file")
		code          = fs.String("e", "", "Evaluate code instead of reading a file")
		out           = fs.String("out", "", "Print the resulting sandbox as json, yaml or toml")
		displayErrors = fs.Bool("display-errors", false, "Render errors with their source location")
		verbose       = fs.Bool("v", false, "Debug logging")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: evalrun [flags] [file.js]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	logCfg := logging.DevelopmentConfig()
	logCfg.Level, logCfg.OutputPaths = "warn", []string{"stderr"}
	if *verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(stderr, "evalrun: %v\n", err)
		return exitFailure
	}
	defer func() { _ = logger.Sync() }()

	req := runner.Request{Code: *code, Mode: runner.Mode(*mode), DisplayErrors: *displayErrors}
	switch req.Mode {
	case runner.ModeThis, runner.ModeNew:
	default:
		fmt.Fprintf(stderr, "evalrun: unknown mode %q\n", *mode)
		return exitUsage
	}

	if *code == "" {
		if fs.NArg() != 1 {
			fs.Usage()
			return exitUsage
		}
		data, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			fmt.Fprintf(stderr, "evalrun: %v\n", err)
			return exitFailure
		}
		req.Code, req.Filename = string(data), fs.Arg(0)
	}

	if *sandboxPath != "" {
		if req.Mode != runner.ModeNew {
			fmt.Fprintln(stderr, "evalrun: -sandbox needs -mode new")
			return exitUsage
		}
		sb, err := seed.Load(*sandboxPath)
		if err != nil {
			fmt.Fprintf(stderr, "evalrun: %v\n", err)
			return exitFailure
		}
		req.Sandbox = seed.Snapshot(sb)
	}

	var outFormat seed.Format
	if *out != "" {
		outFormat = seed.Format(*out)
		if _, err := seed.Encode(outFormat, object.NewMap()); err != nil {
			fmt.Fprintf(stderr, "evalrun: %v\n", err)
			return exitUsage
		}
	}

	r := runner.New(logger.Named("evalrun").Logger, evalmachine.WithDiagnostics(stderr))
	defer func() { _ = r.Close() }()

	res, err := r.Run(req)
	if err != nil {
		logger.Debug("evaluation failed", zap.Error(err))
		return fail(stderr, err, *displayErrors)
	}

	for _, entry := range res.Logs {
		fmt.Fprintln(stdout, entry.Message)
	}
	value, err := sonic.Marshal(res.Value)
	if err != nil {
		fmt.Fprintf(stderr, "evalrun: %v\n", err)
		return exitFailure
	}
	fmt.Fprintln(stdout, string(value))

	if outFormat != "" {
		data, err := seed.Encode(outFormat, object.FromMap(res.Sandbox))
		if err != nil {
			fmt.Fprintf(stderr, "evalrun: %v\n", err)
			return exitFailure
		}
		_, _ = stdout.Write(data)
	}
	return exitOK
}

// fail reports err. With rendered set the machine has already written
// syntax errors to stderr.
func fail(stderr io.Writer, err error, rendered bool) int {
	var rt *scripterr.RuntimeError
	switch scripterr.KindOf(err) {
	case scripterr.KindCompile:
		if !rendered {
			fmt.Fprintln(stderr, err)
		}
		return exitCompile
	case scripterr.KindRuntime:
		if errors.As(err, &rt) {
			_ = rt.Render(stderr)
		}
		return exitRuntime
	}
	fmt.Fprintf(stderr, "evalrun: %v\n", err)
	return exitFailure
}
