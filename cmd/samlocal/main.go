// Command samlocal invokes a function handler locally, once, through the
// external CLI, and exits with the handler process's exit code.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ourobouros/samlocal/internal/config"
	"github.com/ourobouros/samlocal/internal/debug"
	"github.com/ourobouros/samlocal/internal/launcher"
	"github.com/ourobouros/samlocal/internal/orchestrator"
)

func main() {
	var (
		handlerRef = flag.String("handler", "", "function handler reference to invoke (required)")
		event      = flag.String("event", "", "input payload, passed to the handler as-is")
		eventFile  = flag.String("event-file", "", "read the input payload from this file instead of -event")
		debugMode  = flag.Bool("debug", false, "invoke with debug support and auto-resume breakpoints")
		breakpoint = flag.String("breakpoint", "", "breakpoint as file:line (debug mode)")
		timeout    = flag.Duration("timeout", 2*time.Minute, "how long to wait for the result")
		cliPath    = flag.String("cli", "", "path to the CLI executable (default: $SAMLOCAL_CLI, then \"sam\")")
		template   = flag.String("template", "", "template file passed to the CLI")
		verbose    = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *handlerRef == "" {
		logger.Error("missing required -handler flag")
		flag.Usage()
		os.Exit(2)
	}

	payload := *event
	if *eventFile != "" {
		data, err := os.ReadFile(*eventFile)
		if err != nil {
			logger.Error("failed to read event file", slog.String("error", err.Error()))
			os.Exit(1)
		}
		payload = string(data)
	}

	mode := orchestrator.ModeRun
	if *debugMode {
		mode = orchestrator.ModeDebug
	}

	cfg := config.RunConfigFromEnv(orchestrator.RunRequest{
		Handler: *handlerRef,
		Payload: payload,
		Mode:    mode,
	})
	if *cliPath != "" {
		cfg.Executable = *cliPath
	}
	if *template != "" {
		cfg.TemplatePath = *template
	}
	if *breakpoint != "" {
		bp, err := parseBreakpoint(*breakpoint)
		if err != nil {
			logger.Error("invalid -breakpoint value", slog.String("error", err.Error()))
			os.Exit(2)
		}
		cfg.Breakpoints = append(cfg.Breakpoints, bp)
	}

	if err := config.ValidateRun(cfg); err != nil {
		logger.Error("invalid run configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}

	orch := orchestrator.New(launcher.NewCLILauncher(logger), logger)

	run, err := orch.Execute(context.Background(), cfg)
	if err != nil {
		logger.Error("launch failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	res, err := run.Await(*timeout)
	if err != nil {
		logger.Error("run did not resolve", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Fprint(os.Stdout, res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if mode == orchestrator.ModeDebug {
		logger.Info("debug session summary", slog.Bool("breakpointHit", run.BreakpointHit()))
	}

	os.Exit(res.ExitCode)
}

// parseBreakpoint parses "file:line".
func parseBreakpoint(s string) (debug.Breakpoint, error) {
	file, lineStr, ok := strings.Cut(s, ":")
	if !ok || file == "" {
		return debug.Breakpoint{}, fmt.Errorf("want file:line, got %q", s)
	}
	line, err := strconv.Atoi(lineStr)
	if err != nil || line <= 0 {
		return debug.Breakpoint{}, fmt.Errorf("bad line number in %q", s)
	}
	return debug.Breakpoint{File: file, Line: line}, nil
}
