package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
)

const cliToolVersion = "rinha-cli 0.1.0"

const (
	envFileName     = ".env"
	maxDepthEnvVar  = "RINHA_MAX_CALL_DEPTH"
	logLevelEnvVar  = "RINHA_LOG_LEVEL"
	defaultLogLevel = "error"
	maxTraceFrames  = 20
)

type cliOptions struct {
	maxDepth int
	logLevel string
	logFile  string
	noColor  bool
}

// cliSession carries the per-invocation logger and settings.
type cliSession struct {
	opts    cliOptions
	logger  *slog.Logger
	errTag  *color.Color
	warnTag *color.Color
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := loadEnvFile(envFileName); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFileName, err)
		return 1
	}

	if len(args) > 0 && (args[0] == "--version" || args[0] == "-V") {
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	}

	opts, rest, err := parseGlobalFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(os.Stdout)
			return 0
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		printUsage(os.Stderr)
		return 1
	}
	if len(rest) == 0 {
		printUsage(os.Stderr)
		return 1
	}

	logWriter := configureLogWriter(opts.logFile)
	if logWriter != os.Stderr {
		defer logWriter.Close()
	}
	session := newSession(opts, logWriter)

	switch rest[0] {
	case "help":
		printUsage(os.Stdout)
		return 0
	case "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "run":
		return session.runEntry(rest[1:])
	case "check":
		return session.runCheck(rest[1:])
	case "deps":
		return session.runDeps(rest[1:])
	default:
		return session.runEntry(rest)
	}
}

func parseGlobalFlags(args []string) (cliOptions, []string, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("rinha", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&opts.maxDepth, "max-depth", 0, "maximum nested call depth")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored diagnostics")
	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if opts.maxDepth < 0 {
		return opts, nil, fmt.Errorf("--max-depth must not be negative (got %d)", opts.maxDepth)
	}
	if opts.logLevel == "" {
		opts.logLevel = strings.TrimSpace(os.Getenv(logLevelEnvVar))
	}
	if opts.logLevel == "" {
		opts.logLevel = defaultLogLevel
	}
	return opts, fs.Args(), nil
}

func newSession(opts cliOptions, logWriter io.Writer) *cliSession {
	if opts.noColor || !isatty.IsTerminal(os.Stderr.Fd()) {
		color.NoColor = true
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: logLevelFromString(opts.logLevel),
	}))
	return &cliSession{
		opts:    opts,
		logger:  logger,
		errTag:  color.New(color.FgRed, color.Bold),
		warnTag: color.New(color.FgYellow),
	}
}

// loadEnvFile applies KEY=VALUE pairs from path. Variables already set in the
// environment win, and a missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// resolveMaxDepth picks the call depth limit: flag, then environment, then
// manifest. Zero leaves the interpreter default in place.
func (s *cliSession) resolveMaxDepth(manifestDepth int) (int, error) {
	if s.opts.maxDepth > 0 {
		return s.opts.maxDepth, nil
	}
	if raw := strings.TrimSpace(os.Getenv(maxDepthEnvVar)); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth < 0 {
			return 0, fmt.Errorf("%s must be a non-negative integer (got %q)", maxDepthEnvVar, raw)
		}
		if depth > 0 {
			return depth, nil
		}
	}
	return manifestDepth, nil
}

func configureLogWriter(logFile string) *os.File {
	if logFile == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	logWriter, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return logWriter
}

func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func (s *cliSession) errorf(format string, args ...any) {
	s.errTag.Fprint(os.Stderr, "error: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func (s *cliSession) warnf(format string, args ...any) {
	s.warnTag.Fprint(os.Stderr, "warning: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: rinha [flags] <command> [args]

Commands:
  run [target|file.json]  Evaluate a manifest target or an AST file
  check <target|file.json>
                          Decode a program and report embedded parse errors
  deps install            Fetch the git sources named in rinha.yml and write rinha.lock
  <file.json>             Shorthand for run <file.json>
  version                 Print the CLI version

Flags:
  --max-depth <n>         Maximum nested call depth (env %s)
  --log-level <level>     debug, info, warn, error (env %s, default %s)
  --log-file <path>       Write logs to a file instead of stderr
  --no-color              Disable colored diagnostics
`, maxDepthEnvVar, logLevelEnvVar, defaultLogLevel)
}
